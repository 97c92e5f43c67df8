// Package xconf 提供服务的类型化配置加载。
//
// 加载顺序：内置默认值 → YAML 文件覆盖 → 校验。
// 未出现在文件里的字段保持默认值，时长字段支持 "30s"、"2m" 写法。
package xconf
