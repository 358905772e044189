// Package logging 提供本地日志写入相关的子包。
//
// 子包列表：
//   - xlogwriter: 单 goroutine actor 驱动的日志写入器（缓冲、延迟刷盘、轮转、压缩触发）
//   - xbuffer: 有界行缓冲区，溢出时拒绝整行
//   - xframe: 批次帧编码，明文或 RSA+AES 混合加密
//   - xcompress: 历史日志压缩任务与单任务触发器
//
// 设计原则：
//   - 写入路径不阻塞调用方，过载时丢行而非等待
//   - 加密失败不丢数据，回退为明文帧
package logging
