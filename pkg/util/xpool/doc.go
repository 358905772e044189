// Package xpool 提供通用的泛型 worker pool。
//
// NewWorkerPool 创建后自动启动 worker。Submit 永不阻塞：队列满时返回
// ErrQueueFull，关闭后返回 ErrPoolStopped。单个任务 panic 被恢复并记录
// 堆栈，不影响其他任务；日志默认只记录 task 类型，WithLogTaskValue 可输出完整值。
//
// # 关闭
//
// Close 等价于 Shutdown(context.Background())，等待队列中全部任务完成。
// Shutdown(ctx) 在 ctx 到期时返回 ctx.Err()，残留 worker 继续处理剩余任务，
// 可通过 Done() 等待。Close/Shutdown 不可在 handler 内调用，否则会死锁。
//
// 设计决策: NewWorkerPool 返回 *WorkerPool[T] 而非接口，
// 编译期通过 io.Closer 断言确保关闭契约。
package xpool
