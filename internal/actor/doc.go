// Package actor 提供单 worker 的消息调度循环。
//
// Loop 持有两个队列：立即消息的 FIFO 队列，以及按截止时间排序的延迟消息最小堆。
// 每轮循环先处理所有已到期的延迟消息，再取出立即队列中的消息依次处理。
// 所有消息都在同一个 goroutine 中执行，handler 访问的状态无需加锁。
//
// # 延迟消息去重
//
// 延迟消息通过 key 标识。同一 key 重复调用 [Loop.PostDelayed] 会替换之前尚未到期的
// 条目（截止时间按最新一次计算），保证同一 key 至多一个待处理的延迟消息。
// [Loop.CancelDelayed] 只取消延迟条目，不会影响已进入立即队列的消息，
// 因此 Post 的先后顺序总是等于处理顺序。
//
// # 退出
//
// [Loop.Quit] 拒绝后续投递，处理完立即队列中已有的消息后退出；
// 尚未到期的延迟消息被丢弃。
package actor
