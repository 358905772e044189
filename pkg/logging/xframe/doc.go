// Package xframe 把一批缓冲的日志字节编码为磁盘记录（帧）。
//
// # 明文模式
//
// 原样输出，无任何帧头。
//
// # 加密模式
//
// 每次编码生成新的 16 字节 AES 密钥 K 与 16 字节 IV，
// 使用 AES-CBC(K, IV) 加密整批数据，再用 RSA 公钥分别加密 IV 与 K：
//
//	+----------------+--------+-----------+------------+-------------+
//	| len (4B, BE)   | mode 1B| encIV     | encKey     | ciphertext  |
//	+----------------+--------+-----------+------------+-------------+
//
// len 为 ciphertext（回退时为明文）的长度；encIV 与 encKey 的长度等于 RSA 模长。
//
// # 加密失败回退
//
// 任一加密步骤失败时，默认把原始明文以 mode=0 写入同样的帧结构，
// encIV/encKey 位置填零，保持磁盘格式可解析。这意味着该批日志未受保护，
// [Record.Fallback] 会置位，调用方必须记录并上报。
// 使用 [WithStrictEncryption] 可改为返回 [ErrEncryption]，由调用方保留数据稍后重试。
package xframe
