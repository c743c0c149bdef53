// Copyright 2026 PixelAgent Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 routine 提供基于 YAML/JSON 的声明式例程定义、加载与执行。

例程是代理每轮迭代执行一次的界面步骤序列，由配置文件（而非 Go 代码）
描述。例程只是核心能力的调用方：视觉步骤落到 vision.Query，行走落到
navigation.Navigator，侧边栏落到 client.Client。

# 步骤类型

  - await / click / click_any - 视觉步骤，必须显式给出 region、confidence、
    attempts 与 poll，未命中时按 on_miss 处理（fail、skip、stop）
  - key / type - 按键与逐字输入
  - sleep - 随机等待
  - travel - 沿路线文件行走
  - side_stone - 打开侧边栏标签页

# 典型用法

	loader := routine.NewYAMLLoader()
	r, err := loader.LoadFile("mine.yaml")

	exec := routine.NewExecutor(deps, routine.WithLogger(logger))
	if err := exec.Prepare(r); err != nil { ... }
	res, err := exec.Run(ctx, r)

# 设计约束

  - Prepare 在第一次会话前完成校验、模板预加载与路线加载
  - 未命中永远先经过 on_miss 策略，只有 fail 会变成 OperationFailed
  - 支持 YAML (.yaml/.yml) 和 JSON (.json) 两种格式
*/
package routine
