package crawlers

import (
	"net/url"
	"regexp"
	"strings"
)

// Normalizer URL规范化器
// 职责: 规范化路径段(./..)、解析相对链接、应用drop模式
// 所有方法尽力而为,畸形输入返回原值,绝不中断运行
type Normalizer struct {
	// 编译后的drop正则模式,按配置顺序应用
	dropPatterns []*regexp.Regexp
}

// NewNormalizer 创建规范化器
// 无法编译的drop模式记录警告后跳过
func NewNormalizer(dropPatterns []string) *Normalizer {
	compiled := make([]*regexp.Regexp, 0, len(dropPatterns))
	for _, pattern := range dropPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return &Normalizer{dropPatterns: compiled}
}

// CleanLink 规范化URL的路径部分
// 拆分scheme/host/path/query/fragment,只解析路径中的./..段后重组,
// query和fragment保持不变
func (n *Normalizer) CleanLink(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	parsed.Path = resolvePathSegments(parsed.Path)
	// RawPath与规范化后的Path不再一致,清空以免String()使用旧值
	parsed.RawPath = ""
	return parsed.String()
}

// resolvePathSegments 从左到右解析路径中的.和..段
// ..弹出最近一个已解析段(没有则丢弃),.直接丢弃,不产生错误
func resolvePathSegments(path string) string {
	segments := strings.Split(path, "/")
	// 除最后一段外每段都带尾部斜杠,保持目录/文件语义
	parts := make([]string, 0, len(segments))
	for i, segment := range segments {
		if i < len(segments)-1 {
			parts = append(parts, segment+"/")
		} else {
			parts = append(parts, segment)
		}
	}

	resolved := make([]string, 0, len(parts))
	for _, segment := range parts {
		switch segment {
		case "../", "..":
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
		case "./", ".":
			// 丢弃
		default:
			resolved = append(resolved, segment)
		}
	}
	return strings.Join(resolved, "")
}

// ResolveRelative 将相对链接按标准URL解析规则拼接到页面URL上
func (n *Normalizer) ResolveRelative(baseURL string, link string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// ApplyDropPatterns 按配置顺序删除URL中每个模式的所有匹配
func (n *Normalizer) ApplyDropPatterns(link string) string {
	for _, re := range n.dropPatterns {
		link = re.ReplaceAllString(link, "")
	}
	return link
}
