package models

import "fmt"

// ConfigError 配置错误
// 在任何爬取开始之前产生,与运行期失败可区分
type ConfigError struct {
	Field  string // 出错的配置字段
	Reason string // 错误原因
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置错误 [%s]: %s", e.Field, e.Reason)
}

// DriftExceededError URL数量漂移超过阈值
// 输出写入器在覆盖已有sitemap之前检测到异常的URL数量变化时返回,
// 此时不写入、不截断任何文件,批量运行的其他域名继续处理
type DriftExceededError struct {
	Domain    string // 目标域名
	OldCount  int    // 已有sitemap中的URL数
	NewCount  int    // 本次爬取产出的URL数
	Threshold int    // 配置的阈值
}

// Error 实现error接口
func (e *DriftExceededError) Error() string {
	return fmt.Sprintf("URL数量差异 (%d) 超过阈值 (%d): %s (旧:%d 新:%d)",
		e.Diff(), e.Threshold, e.Domain, e.OldCount, e.NewCount)
}

// Diff 返回新旧URL数量的绝对差
func (e *DriftExceededError) Diff() int {
	diff := e.NewCount - e.OldCount
	if diff < 0 {
		diff = -diff
	}
	return diff
}
