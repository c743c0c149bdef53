// 版权所有 2026 PixelAgent Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 pixelagent 状态端点的 HTTP 服务器生命周期管理。

# 概述

运行中的代理在一个只读 HTTP 端口上暴露 /metrics、/status 和
/healthz。Manager 封装 net/http.Server，Run 与控制循环放在同一个
errgroup 中，ctx 取消时优雅关闭。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Run/Shutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头与关闭超时。
  - Middleware：Chain、Recovery、RequestLogger、ReadOnly。
*/
package server
