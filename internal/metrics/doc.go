// 版权所有 2026 PixelAgent Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
vision、input、navigation、scheduler 与 routine 五大维度。

# 概述

Collector 使用私有 Registry 与 promauto.With 注册全部指标，
Handler 通过 promhttp 暴露 /metrics。nil *Collector 是合法值，
所有 Record* 方法在 nil 上为空操作。

# 主要能力

  - Vision 指标：查询结果、截屏次数、匹配得分分布、每次查询的尝试次数。
  - Input 指标：按 kind（click/key/type/move）计数。
  - Navigation 指标：travel 结果与耗时、每个 waypoint 的点击数、定位得分。
  - Scheduler 指标：按 checkpoint 的掷骰结果、完成 session 数、休息时长。
  - Routine 指标：按 action/result 的步骤计数。
*/
package metrics
