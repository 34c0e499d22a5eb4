package crawlers

import (
	"mime"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
)

// 链接/图片提取用的模式匹配正则
// 按设计使用模式提取而非DOM解析,不执行JavaScript
var (
	linkRegex  = regexp.MustCompile(`<a [^>]*href=['"](.*?)['"][^>]*?>`)
	imageRegex = regexp.MustCompile(`<img [^>]*src=['"](.*?)['"].*?>`)
)

// Extractor HTML链接/图片提取器
// 职责: 从页面body中按模式提取anchor链接和img地址,
// 并完成链接的规范化阶梯 (绝对化、锚点剥离、drop模式)
type Extractor struct {
	normalizer *Normalizer
	domain     string // 配置的目标域名URL
	targetHost string // 目标域名host
	exclude    []string
}

// NewExtractor 创建提取器
func NewExtractor(normalizer *Normalizer, domain string, targetHost string, exclude []string) *Extractor {
	return &Extractor{
		normalizer: normalizer,
		domain:     domain,
		targetHost: targetHost,
		exclude:    exclude,
	}
}

// ExtractLinks 提取页面中的anchor链接并规范化
// 规范化顺序: 绝对化 -> 剥离fragment -> 应用drop模式
// mailto/tel链接被丢弃,返回值未去重 (去重由边界集合完成)
func (e *Extractor) ExtractLinks(body []byte, pageURL string) []string {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	matches := linkRegex.FindAllSubmatch(body, -1)
	links := make([]string, 0, len(matches))

	for _, match := range matches {
		link := string(match[1])
		utils.Debugf("发现链接: %s", link)

		switch {
		case strings.HasPrefix(link, "/"):
			link = page.Scheme + "://" + page.Host + link
		case strings.HasPrefix(link, "#"):
			link = page.Scheme + "://" + page.Host + page.Path + link
		case strings.HasPrefix(link, "mailto") || strings.HasPrefix(link, "tel"):
			continue
		case !strings.HasPrefix(link, "http"):
			link = e.normalizer.CleanLink(e.normalizer.ResolveRelative(pageURL, link))
		}

		// 剥离锚点
		if idx := strings.Index(link, "#"); idx != -1 {
			link = link[:idx]
		}

		link = e.normalizer.ApplyDropPatterns(link)
		links = append(links, link)
	}

	return links
}

// ExtractImages 提取页面中的img地址并规范化
// 应用协议补全、域名补全、排除词过滤和目标域名检查,
// robots策略检查由调用方完成,返回值已去重
func (e *Extractor) ExtractImages(body []byte, pageURL string) []string {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	matches := imageRegex.FindAllSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	images := make([]string, 0, len(matches))

	for _, match := range matches {
		imageLink := string(match[1])

		// data:内联图片直接忽略
		if strings.HasPrefix(imageLink, "data:") {
			continue
		}

		// 协议相对路径补全当前页面协议
		if strings.HasPrefix(imageLink, "//") {
			imageLink = page.Scheme + ":" + imageLink
		} else if !strings.HasPrefix(imageLink, "http") {
			// 相对路径补全目标域名
			if !strings.HasPrefix(imageLink, "/") {
				imageLink = "/" + imageLink
			}
			imageLink = strings.TrimRight(e.domain, "/") + strings.ReplaceAll(imageLink, "./", "/")
		}

		if !e.PassesExcludeFilter(imageLink) {
			continue
		}

		// 忽略其他域名的图片
		parsed, err := url.Parse(imageLink)
		if err != nil || parsed.Host != e.targetHost {
			continue
		}

		if _, ok := seen[imageLink]; ok {
			continue
		}
		seen[imageLink] = struct{}{}
		images = append(images, imageLink)
	}

	return images
}

// PassesExcludeFilter 检查URL是否不包含任何配置的排除子串
// 返回true表示URL可以保留
func (e *Extractor) PassesExcludeFilter(link string) bool {
	for _, ex := range e.exclude {
		if strings.Contains(link, ex) {
			return false
		}
	}
	return true
}

// IsImagePath 按MIME类型推断路径是否指向图片
func IsImagePath(path string) bool {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	return strings.HasPrefix(mimeType, "image/")
}
