// Package config 提供 pixelagent 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 环境变量名由 env 标签拼接而成，例如 PIXELAGENT_SESSION_MIN_SESSION。
// Validate 在任何会话工作开始之前返回 ConfigurationError。
package config
