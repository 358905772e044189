package actor

import "errors"

var (
	// ErrNilHandler 表示 handler 参数为 nil。
	ErrNilHandler = errors.New("actor: handler cannot be nil")

	// ErrEmptyKey 表示延迟消息的 key 为空。
	ErrEmptyKey = errors.New("actor: delayed message key is required")
)
