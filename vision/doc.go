// Package vision 实现基于模板匹配的屏幕感知。
//
// 核心流程：截取显示器区域 → 与模板图像做归一化互相关 → 取全局最大值，
// 分数达到置信度即接受，否则随机等待后重试，直到尝试次数用尽。
//
// 未找到永远不是错误：Locate / AwaitPresence / AwaitAndClick 以布尔值报告，
// 是否升级为致命错误由调用方决定。LocateAny 在同一次截图上按顺序测试多个
// 候选模板，并通过 Match.Variant 标明命中的是哪一个。
//
// 匹配后端：
//   - NCCMatcher: 精确的 TM_CCOEFF_NORMED，积分图计算窗口统计量
//   - PyramidMatcher: 先缩小再在原分辨率邻域内精修，用于大尺寸参考地图
package vision
