package models

import (
	"fmt"
	"net/url"
	"time"
)

// MaxURLsPerSitemap 单个sitemap文件允许的最大<url>条目数
// 参考sitemap协议规范: https://www.sitemaps.org/protocol.html
const MaxURLsPerSitemap = 50000

// CrawlConfig 单次爬取运行的完整配置
// 配置在运行期间不可变,由Crawler实例独占持有
type CrawlConfig struct {
	Domain      string   `json:"domain" mapstructure:"domain"`             // 目标域名URL (如 https://blog.example.com)
	SitemapURLs []string `json:"sitemap_url" mapstructure:"sitemap_url"`   // 显式指定的sitemap URL列表
	SitemapOnly bool     `json:"sitemap_only" mapstructure:"sitemap_only"` // 仅处理sitemap,不爬取HTML页面

	NumWorkers  int    `json:"num_workers" mapstructure:"num_workers"` // 并发worker数 (默认:1)
	ParseRobots bool   `json:"parserobots" mapstructure:"parserobots"` // 是否遵守robots.txt
	UserAgent   string `json:"user_agent" mapstructure:"user_agent"`   // robots.txt规则匹配的User-agent (默认:*)
	Timeout     int    `json:"timeout" mapstructure:"timeout"`         // 单次HTTP请求超时(秒) (默认:30)

	Auth     bool   `json:"auth" mapstructure:"auth"`   // 启用HTTP基本认证
	Username string `json:"-" mapstructure:"username"`  // 基本认证用户名 (仅来自配置文件)
	Password string `json:"-" mapstructure:"password"`  // 基本认证密码 (仅来自配置文件)

	Images  bool     `json:"images" mapstructure:"images"`   // 生成图片sitemap条目
	Exclude []string `json:"exclude" mapstructure:"exclude"` // URL包含任一子串则排除
	SkipExt []string `json:"skipext" mapstructure:"skipext"` // 跳过的文件扩展名
	Drop    []string `json:"drop" mapstructure:"drop"`       // 从URL中删除的正则模式

	Output             string `json:"output" mapstructure:"output"`                             // 输出文件路径 (空则写到标准输出)
	AsIndex            bool   `json:"as_index" mapstructure:"as_index"`                         // 超过50000条时拆分为索引+多文件
	SortAlphabetically bool   `json:"sort_alphabetically" mapstructure:"sort_alphabetically"`   // 输出前按字典序排序 (默认:true)
	MaxURLDiff         int    `json:"max_url_diff" mapstructure:"max_url_diff"`                 // URL数量漂移阈值,负数表示禁用
	Report             bool   `json:"report" mapstructure:"report"`                             // 运行结束后输出统计报告
}

// Validate 验证配置
// 在任何网络活动之前快速失败
func (c *CrawlConfig) Validate() error {
	if c.NumWorkers < 1 {
		return &ConfigError{Field: "num_workers", Reason: fmt.Sprintf("worker数量必须为正数,当前值: %d", c.NumWorkers)}
	}

	parsed, err := url.Parse(c.Domain)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ConfigError{Field: "domain", Reason: fmt.Sprintf("无效的目标域名: %q", c.Domain)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ConfigError{Field: "domain", Reason: fmt.Sprintf("不支持的协议: %s", parsed.Scheme)}
	}

	if c.AsIndex && c.Output == "" {
		return &ConfigError{Field: "output", Reason: "使用索引模式(as_index)时必须指定输出文件"}
	}

	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Reason: fmt.Sprintf("超时时间不能为负数,当前值: %d", c.Timeout)}
	}

	return nil
}

// TargetHost 返回目标域名的host部分
func (c *CrawlConfig) TargetHost() string {
	parsed, err := url.Parse(c.Domain)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// Scheme 返回目标域名的协议
func (c *CrawlConfig) Scheme() string {
	parsed, err := url.Parse(c.Domain)
	if err != nil {
		return ""
	}
	return parsed.Scheme
}

// SitemapEntry 一条最终进入sitemap输出的URL记录
// 创建后不可变,运行结束时只读传递给输出写入器
type SitemapEntry struct {
	Loc     string     `json:"loc"`               // 页面URL (已确认同域且2xx)
	LastMod *time.Time `json:"lastmod,omitempty"` // 最后修改时间 (来自Last-Modified/Date响应头)
	Images  []string   `json:"images,omitempty"`  // 页面内图片URL (仅images模式)
}

// OutcomeKind 抓取结果分类
type OutcomeKind string

const (
	OutcomeHTML      OutcomeKind = "html"      // HTML页面,body可供链接提取
	OutcomeUnfetched OutcomeKind = "unfetched" // 扩展名不可解析,未下载body
	OutcomeError     OutcomeKind = "error"     // HTTP错误或网络错误
)

// FetchOutcome 单次抓取的结果
// Fetcher产出,由Crawler分发给分类器/提取器
type FetchOutcome struct {
	Kind        OutcomeKind // 结果分类
	Body        []byte      // 响应body (已按Content-Encoding解压)
	FinalURL    string      // 重定向后的最终URL
	StatusCode  int         // HTTP状态码 (网络错误时为0)
	ContentType string      // Content-Type响应头
	LastMod     *time.Time  // Last-Modified/Date响应头解析结果
	Reason      string      // Unfetched/Error时的原因描述
}

// CrawlStats 爬取统计
// 计数器单调递增,运行结束后由报告组件读取
type CrawlStats struct {
	NumDiscovered   int              `json:"num_discovered"`    // 发现的URL总数
	NumCrawled      int              `json:"num_crawled"`       // 实际爬取的链接数
	NumRobotsBlock  int              `json:"num_robots_block"`  // 被robots.txt阻止的URL数
	NumExcluded     int              `json:"num_excluded"`      // 被扩展名/排除词排除的URL数
	NumOutputURLs   int              `json:"num_output_urls"`   // 最终输出的URL数
	ResponseCodes   map[int]int      `json:"response_codes"`    // HTTP状态码直方图
	Marked          map[int][]string `json:"marked,omitempty"`  // 状态码 -> URL列表 (仅report模式)
	Duration        float64          `json:"duration"`          // 总耗时(秒)
}

// NewCrawlStats 创建空统计对象
func NewCrawlStats() CrawlStats {
	return CrawlStats{
		ResponseCodes: make(map[int]int),
		Marked:        make(map[int][]string),
	}
}
