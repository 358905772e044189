// Package xconf 加载 xlogfile 的运行配置，基于 koanf 实现。
//
// # 分层
//
// Load 按以下顺序合并配置，后者覆盖前者：
//
//  1. 内置默认值（DefaultSettings，经 koanf structs provider 加载）
//  2. 可选的配置文件（YAML：.yaml/.yml，JSON：.json）或字节数据
//  3. 环境变量，默认前缀 "XLOGFILE_"，双下划线表示层级：
//     XLOGFILE_COMPRESSION__WORKERS=4 对应 compression.workers
//
// 合并结果反序列化为 Settings 后由 go-playground/validator 校验。
// 时长字段接受 "500ms"、"2s" 之类的字符串。
//
// # 监视
//
// Watch 监视配置文件所在目录（兼容 vim/emacs 的原子写入），防抖后重新执行
// Load，并把新的 Settings 或错误交给回调。Stop 之后不再触发新的回调，
// 在回调中调用 Stop 不会死锁。
package xconf
