package crawlers

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
	"github.com/antchfx/xmlquery"
)

// XMLKind XML内容分类
type XMLKind int

const (
	XMLNotSitemap XMLKind = iota // 不是sitemap,按HTML继续处理
	XMLIndex                     // sitemap索引,URLs为子sitemap地址
	XMLLeaf                      // 叶子sitemap,URLs为页面地址
)

// XMLClassification XML分类结果
type XMLClassification struct {
	Kind XMLKind
	URLs []string
}

// Classifier XML内容分类器
// 职责: 识别sitemap索引/叶子sitemap并提取<loc>条目,
// 被重定向到目标域名的sitemap中的URL会被改写为目标scheme+host
type Classifier struct {
	scheme     string
	targetHost string
}

// NewClassifier 创建分类器
func NewClassifier(scheme string, targetHost string) *Classifier {
	return &Classifier{
		scheme:     scheme,
		targetHost: targetHost,
	}
}

// LooksLikeXML 判断是否应优先尝试XML解析
// Content-Type包含xml、URL以.xml结尾或URL看起来像sitemap时为true
func LooksLikeXML(contentType string, currentURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "xml") {
		return true
	}
	return LooksLikeSitemapURL(currentURL)
}

// LooksLikeSitemapURL 判断URL在文本上是否像一个sitemap
func LooksLikeSitemapURL(currentURL string) bool {
	return strings.HasSuffix(currentURL, ".xml") ||
		strings.Contains(strings.ToLower(currentURL), "sitemap")
}

// ClassifyXML 分类XML内容并提取loc条目
// redirectedToTarget为true时,叶子sitemap中非目标域名的URL
// 会保留path/query/fragment改写到目标scheme+host下
// 解析失败返回XMLNotSitemap,绝不中断运行
func (c *Classifier) ClassifyXML(content []byte, currentURL string, redirectedToTarget bool) *XMLClassification {
	if bytes.Contains(content, []byte("<sitemapindex")) {
		utils.Infof("在 %s 发现sitemap索引", currentURL)
		return &XMLClassification{
			Kind: XMLIndex,
			URLs: extractLocs(content, "sitemap"),
		}
	}

	if bytes.Contains(content, []byte("<urlset")) {
		utils.Infof("在 %s 发现sitemap", currentURL)
		pageURLs := extractLocs(content, "url")
		if redirectedToTarget {
			pageURLs = c.rewriteToTargetDomain(pageURLs)
		}
		return &XMLClassification{
			Kind: XMLLeaf,
			URLs: pageURLs,
		}
	}

	return &XMLClassification{Kind: XMLNotSitemap}
}

// extractLocs 提取<parent><loc>条目
// local-name匹配同时覆盖带命名空间和不带命名空间的文档
func extractLocs(content []byte, parent string) []string {
	doc, err := xmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		utils.Debugf("解析sitemap XML失败: %v", err)
		return nil
	}

	expr := "//*[local-name()='" + parent + "']/*[local-name()='loc']"
	nodes := xmlquery.Find(doc, expr)

	locs := make([]string, 0, len(nodes))
	for _, node := range nodes {
		loc := strings.TrimSpace(node.InnerText())
		if loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs
}

// rewriteToTargetDomain 将非目标域名的URL改写到目标域名下
// 保持path/query/fragment不变,使外部托管的镜像sitemap归属到规范域名
func (c *Classifier) rewriteToTargetDomain(pageURLs []string) []string {
	rewritten := make([]string, 0, len(pageURLs))
	for _, pageURL := range pageURLs {
		parsed, err := url.Parse(pageURL)
		if err != nil || parsed.Host == c.targetHost {
			rewritten = append(rewritten, pageURL)
			continue
		}

		normalized := c.scheme + "://" + c.targetHost + parsed.Path
		if parsed.RawQuery != "" {
			normalized += "?" + parsed.RawQuery
		}
		if parsed.Fragment != "" {
			normalized += "#" + parsed.Fragment
		}
		utils.Debugf("规范化 %s -> %s", pageURL, normalized)
		rewritten = append(rewritten, normalized)
	}
	return rewritten
}
