// Package xsampling 提供诊断事件的采样策略。
//
// 写入路径上的某些事件会在过载时成串出现（如缓冲区满导致的丢行），
// 每次都输出诊断日志会让诊断输出本身成为负担。Sampler 决定某次事件是否记录。
//
// # 策略
//
//   - Always(): 每次都记录
//   - Never(): 从不记录
//   - NewCountSampler(n): 每 n 次记录 1 次（第 1、n+1、2n+1... 次）
//   - NewIntervalSampler(d): 每个时间窗口 d 内只记录第一次
//
// # 并发安全
//
// 所有采样器都是并发安全的。
package xsampling
