// Copyright 2026 PixelAgent Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent 提供 pixelagent 的控制循环。

# 概述

Runner 把各个子系统串成一个会话：

	登录 → 执行一轮例程 → 调度器 Tick → 随机等待 → 下一轮
	                         │
	                         └─ 检查点通过：登出 → 休息 → 重新登录

调度器状态只由 Runner 持有，每次 Tick 传入当前值并保存返回值。

# 生命周期

	idle → logging_in → running ⇄ on_break → completed
	                       └──────────────→ failed

Completed 和 Failed 可以回到 Idle，同一个 Runner 可以再次 Run。

# 错误处理

  - 可重试错误（截屏失败）只消耗当前迭代
  - 会话级致命错误按 OnFatal 处理：logout 先安全登出再返回，crash 直接返回
  - ctx 取消原样返回，不做任何界面操作
*/
package agent
