package xcompress

import "context"

// Compressor 压缩 dir 中除 exclude 外尚未归档的日志文件。
//
// exclude 为正在写入的文件名（不含目录），可以为空。
// 实现应在 ctx 取消后尽快返回。
type Compressor interface {
	Compress(ctx context.Context, dir, exclude string) error
}

// CompressorFunc 函数适配器
type CompressorFunc func(ctx context.Context, dir, exclude string) error

// Compress 实现 Compressor 接口
func (f CompressorFunc) Compress(ctx context.Context, dir, exclude string) error {
	return f(ctx, dir, exclude)
}

// Nop 不做任何事的 Compressor，用于关闭压缩
var Nop Compressor = CompressorFunc(func(context.Context, string, string) error { return nil })
