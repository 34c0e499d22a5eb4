package crawlers

import (
	"testing"
)

// TestCleanLink 测试URL路径规范化
func TestCleanLink(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name     string
		link     string
		expected string
		reason   string
	}{
		{
			name:     "无需规范化的URL原样返回",
			link:     "https://example.com/a/b/c",
			expected: "https://example.com/a/b/c",
			reason:   "路径中没有.或..段",
		},
		{
			name:     "单个..弹出前一段",
			link:     "https://example.com/a/b/../c",
			expected: "https://example.com/a/c",
			reason:   "..消除b段",
		},
		{
			name:     "单个.直接丢弃",
			link:     "https://example.com/a/./b",
			expected: "https://example.com/a/b",
			reason:   ".不影响路径",
		},
		{
			name:     "混合.和..段",
			link:     "https://example.com/a/./b/../c",
			expected: "https://example.com/a/c",
			reason:   ".丢弃后..消除b段",
		},
		{
			name:     "..超出根部时静默丢弃",
			link:     "https://example.com/../a",
			expected: "https://example.com/a",
			reason:   "没有可弹出的段时..直接丢弃,不报错",
		},
		{
			name:     "query保持不变",
			link:     "https://example.com/a/../b?page=2&sort=asc",
			expected: "https://example.com/b?page=2&sort=asc",
			reason:   "只规范化路径部分",
		},
		{
			name:     "无路径的域名根",
			link:     "https://example.com",
			expected: "https://example.com",
			reason:   "空路径无需处理",
		},
		{
			name:     "连续多个..依次弹出",
			link:     "https://example.com/a/b/c/../../d",
			expected: "https://example.com/a/d",
			reason:   "两个..消除c和b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := n.CleanLink(tt.link)
			if result != tt.expected {
				t.Errorf("CleanLink(%q) = %q, 期望 %q (%s)", tt.link, result, tt.expected, tt.reason)
			}
		})
	}
}

// TestCleanLinkIdempotent 测试规范化的幂等性
func TestCleanLinkIdempotent(t *testing.T) {
	n := NewNormalizer(nil)

	links := []string{
		"https://example.com/a/./b/../c",
		"https://example.com/x/y/z?q=1",
		"https://example.com/../..",
	}

	for _, link := range links {
		once := n.CleanLink(link)
		twice := n.CleanLink(once)
		if once != twice {
			t.Errorf("CleanLink不幂等: 第一次=%q, 第二次=%q", once, twice)
		}
	}
}

// TestResolveRelative 测试相对链接解析
func TestResolveRelative(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name     string
		baseURL  string
		link     string
		expected string
	}{
		{
			name:     "相对路径拼接到页面目录",
			baseURL:  "https://example.com/blog/post.html",
			link:     "next.html",
			expected: "https://example.com/blog/next.html",
		},
		{
			name:     "上级目录相对路径",
			baseURL:  "https://example.com/blog/2024/post.html",
			link:     "../archive.html",
			expected: "https://example.com/blog/archive.html",
		},
		{
			name:     "绝对URL不受base影响",
			baseURL:  "https://example.com/blog/",
			link:     "https://example.com/about",
			expected: "https://example.com/about",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := n.ResolveRelative(tt.baseURL, tt.link)
			if result != tt.expected {
				t.Errorf("ResolveRelative(%q, %q) = %q, 期望 %q", tt.baseURL, tt.link, result, tt.expected)
			}
		})
	}
}

// TestApplyDropPatterns 测试drop正则模式应用
func TestApplyDropPatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		link     string
		expected string
	}{
		{
			name:     "删除session参数",
			patterns: []string{`sessionid=[0-9a-f]+`},
			link:     "https://example.com/page?sessionid=abc123",
			expected: "https://example.com/page?",
		},
		{
			name:     "多个模式按顺序应用",
			patterns: []string{`foo`, `bar`},
			link:     "https://example.com/foobar/page",
			expected: "https://example.com//page",
		},
		{
			name:     "无法编译的模式被跳过",
			patterns: []string{`[invalid`, `foo`},
			link:     "https://example.com/foo",
			expected: "https://example.com/",
		},
		{
			name:     "无模式时原样返回",
			patterns: nil,
			link:     "https://example.com/page",
			expected: "https://example.com/page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.patterns)
			result := n.ApplyDropPatterns(tt.link)
			if result != tt.expected {
				t.Errorf("ApplyDropPatterns(%q) = %q, 期望 %q", tt.link, result, tt.expected)
			}
		})
	}
}
