package xlogwriter

// 指标名称
const (
	MetricLinesAppended  = "xlogfile.lines.appended"
	MetricLinesDropped   = "xlogfile.lines.dropped"
	MetricFlushBytes     = "xlogfile.flush.bytes"
	MetricFlushErrors    = "xlogfile.flush.errors"
	MetricCryptoFallback = "xlogfile.crypto.fallback"
	MetricFileRotations  = "xlogfile.file.rotations"
	MetricCompressJobs   = "xlogfile.compress.jobs"
)

const component = "xlogwriter"
