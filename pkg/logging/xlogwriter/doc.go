// Package xlogwriter 实现带缓冲、按文件轮转、可选加密的本地日志写入器。
//
// # 模型
//
// Writer 由单个 actor 循环驱动：生产者通过 Submit 投递日志行，actor 在自己的
// goroutine 中追加到固定容量的缓冲区，并以合并的延迟 flush（默认 500ms）把批量
// 数据写入当前日志文件。缓冲区、文件句柄和压缩状态只由 actor 修改，无需加锁。
//
// # 刷盘策略
//
//   - 明文模式：缓冲区非空即写入
//   - 加密模式：缓冲区长度超过阈值（默认容量的 1/4）或强制 flush 时写入，
//     每次写入生成新的 AES 密钥与 IV
//
// 缓冲区满时只丢弃新来的一行，并输出一条诊断日志；生产者从不阻塞。
//
// # 文件
//
// 文件名形如 "[s_]2024-01-02-3.log"，加密模式带 "s_" 前缀。文件超过大小上限
// （默认 10 MiB）或调用 FlushAndRotate 时切换到下一个序号。新文件创建后，
// 目录中尚未压缩的历史日志交给后台压缩，同一时刻至多一个压缩任务。
//
// # 生命周期
//
//	w, err := xlogwriter.New(xlogwriter.WithDir("/data/log"))
//	w.Start()
//	w.Submit(xlog.LevelInfo, "hello")
//	err = w.Shutdown(ctx) // 强制 flush，关闭文件，等待压缩任务
//
// 同一进程内同一时刻只允许一个 Writer 存活，New 在已有 Writer 时返回 ErrWriterActive。
package xlogwriter
