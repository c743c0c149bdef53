// =============================================================================
// pixelagent 主入口
// =============================================================================
// 像素级桌面代理：模板匹配感知、小地图导航、带检查点的会话调度
//
// 使用方法:
//
//	pixelagent run --config config.yaml --routine mine.yaml   # 运行例程
//	pixelagent run --routine mine.yaml --dry-run               # 只记录输入，不操作鼠标键盘
//	pixelagent travel --route routes/bank.yaml                 # 沿路线走一次
//	pixelagent locate --haystack shot.png --needle ok.png      # 离线匹配
//	pixelagent checkpoints                                     # 打印会话检查点
//	pixelagent ledger                                          # 查看休息记录
//	pixelagent version                                         # 显示版本信息
// =============================================================================

package main

import (
	"errors"
	"os"

	"github.com/BaSui01/pixelagent/types"
	"github.com/fatih/color"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := newRootCommand().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		color.New(color.FgRed).Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process status: 2 for configuration
// problems caught before any session work, 1 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case types.IsErrorCode(err, types.ErrConfiguration):
		return 2
	case errors.Is(err, errUsage):
		return 2
	default:
		return 1
	}
}
