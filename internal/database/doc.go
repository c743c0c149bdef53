// 版权所有 2026 PixelAgent Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理，供 SQL 会话账本使用。

# 概述

Open 根据 config.DatabaseConfig 的驱动类型选择方言：sqlite（纯 Go 的
glebarez/sqlite，无需 cgo）、postgres 或 mysql，随后交给 PoolManager
统一管理连接生命周期。后台健康检查定时探活，Close 后退出。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Close() 以及事务辅助方法。
  - PoolConfig：最大空闲/打开连接数、生命周期与健康检查间隔。
  - PoolStats：友好格式的连接池统计信息。
*/
package database
