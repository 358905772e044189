// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xfile: 目录创建、路径校验与日志文件扫描
//   - xpool: 泛型 Worker Pool，可配置 worker/队列大小、优雅关闭
package util
