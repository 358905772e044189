// Package xcompress 负责把已完成的日志文件交给后台压缩。
//
// Trigger 保证同一时刻最多只有一个压缩任务：任务运行期间的 Start 调用直接
// 返回 false，由调用方保留"待扫描"标记，在下一次机会重试。任务结束时通过
// notify 回调通知调用方，调用方在自己的 goroutine 中调用 Done 释放名额，
// 使任务状态只在调用方一侧被修改。
//
// ZipCompressor 是默认的 Compressor 实现：扫描目录中没有 ".zip" 归档的 ".log"
// 文件（跳过正在写入的文件），逐个压缩为同名 ".zip"，落盘后删除原文件。
// 多个文件由 xpool.WorkerPool 并发处理。
package xcompress
