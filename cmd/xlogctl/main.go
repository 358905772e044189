// xlogctl 是 xlogwriter 的命令行工具。
//
// 用法:
//
//	xlogctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件（YAML/JSON），变更时热更新诊断日志级别
//	-d, --dir      日志目录，覆盖配置文件与环境变量
//
// 命令:
//
//	pipe           从 stdin 逐行读取并写入日志目录
//	keygen         生成 RSA 密钥对，输出十六进制公钥
//	help           显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功（pipe: 输入结束或收到信号）
//	1: 命令执行失败
//	2: 参数错误（无效级别、缺少必需参数、未知命令等）
//
// 示例:
//
//	tail -F app.out | xlogctl -d /data/logs pipe --level warn
//	xlogctl -c xlogfile.yaml pipe --rotate-every 1h
//	xlogctl keygen --out private.pem
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xlogctl",
		Usage:   "缓冲、轮转、可加密的本地日志写入工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "日志目录（覆盖配置）",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		return exitCode(err)
	}
	return 0
}

// exitCode 把命令错误映射为退出码，并向 stderr 输出错误。
func exitCode(err error) int {
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		return 2
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	return 1
}
