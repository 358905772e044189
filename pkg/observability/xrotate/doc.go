// Package xrotate 提供日志文件轮转功能。
//
// Rotator 接口定义了轮转器的核心行为（Write/Close/Rotate）。
//
// # 实现
//
//   - [NewSequence]: 按日期与序号命名的日志文件序列，
//     文件名形如 "[s_]2024-01-02-3.log"，超过大小上限或显式 Rotate 时切换到下一个序号。
//     创建候选文件前检查同名 ".zip" 归档，保证不会复用已归档（可能已上传删除）的序号。
//   - [NewLumberjack]: 基于 lumberjack v2 的按大小轮转，用于写入器自身的诊断日志。
//
// # 序号规则（Sequence）
//
//   - 创建成功: current = N, next = N+1
//   - 创建失败: next 不变，下一次写入重试
//   - Close: next = current，再次写入时追加到同一文件
//   - Rotate: 关闭当前文件，next = current+1
//   - 超过大小上限: 关闭当前文件，next 不变（即 current+1）
//
// Sequence 的文件 I/O 直接使用 os.File：每条记录写入后立即 Sync，
// 命名与防冲突规则也无法映射到 lumberjack 的备份命名。
package xrotate
