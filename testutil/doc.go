// Copyright 2026 PixelAgent Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package testutil 提供 pixelagent 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor

# 子包

  - testutil/mocks: ScriptedCapture（按帧脚本回放的屏幕截图源）、
    ManualClock（手动推进的时钟）、InstantSleeper（只记录不阻塞的等待）
  - testutil/fixtures: 合成图像工厂，提供带纹理的灰度图、纯色图、
    裁剪与粘贴、PNG 落盘

# 使用示例

	screen := fixtures.Texture(800, 600, 7)
	needle := fixtures.Crop(screen, image.Rect(100, 100, 140, 130))
	capture := mocks.NewScriptedCapture(screen)
*/
package testutil
