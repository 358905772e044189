package xlogwriter

import (
	"time"

	"github.com/omeyang/xlogfile/pkg/observability/xlog"
)

// AppendLine 按 "<时间戳><级别前缀><文本>\n" 格式把一行追加到 dst。
//
// 文本原样写入，不做转义；调用方负责避免在文本中嵌入换行。
func AppendLine(dst []byte, t time.Time, layout string, level xlog.Level, text string) []byte {
	dst = t.AppendFormat(dst, layout)
	dst = append(dst, level.Prefix()...)
	dst = append(dst, text...)
	return append(dst, '\n')
}

// FormatLine 以默认时间戳格式格式化一行
func FormatLine(t time.Time, level xlog.Level, text string) []byte {
	return AppendLine(make([]byte, 0, len(DefaultTimestampLayout)+4+len(text)+1), t, DefaultTimestampLayout, level, text)
}
