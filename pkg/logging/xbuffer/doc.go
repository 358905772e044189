// Package xbuffer 提供固定容量的日志字节缓冲区。
//
// Buffer 只有一个逻辑所有者（日志写入 actor），不做并发保护。
// 容量在创建时确定，运行期间不会扩容：放不下的行被整行拒绝（[ErrOverflow]），
// 已缓冲的内容保持不变。
package xbuffer
