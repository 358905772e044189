// Package xfile 提供日志目录相关的文件系统工具。
//
// # 目录
//
//   - EnsureDir: 确保文件的父目录存在
//   - EnsureDirPath: 确保目录本身存在
//
// # 路径
//
// JoinName 将单个文件名拼接到目录下，拒绝包含分隔符、".." 或空字节的名称，
// 保证结果始终位于该目录内。日志文件名由程序生成，这里的检查用于兜底
// 前缀等配置项被误设成路径的情况。
//
// # 扫描
//
// ListUncompressed 列出目录中尚未压缩的 ".log" 文件，即不存在同名 ".zip"
// 归档的日志文件。压缩器与文件轮转共用 ZipName 推导归档名，保证两侧规则一致。
//
// # 错误处理
//
// 预定义错误变量支持 [errors.Is] 判断：
//
//	_, err := xfile.JoinName("/data/log", "../etc/passwd")
//	if errors.Is(err, xfile.ErrInvalidName) {
//	    // 处理非法文件名
//	}
package xfile
