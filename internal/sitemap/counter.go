package sitemap

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
	"github.com/antchfx/xmlquery"
)

// CountURLs 统计已有sitemap文件中的URL数量
// 普通sitemap返回<url>条目数,sitemap索引递归累加所有被引用文件,
// 文件不存在或无法解析时ok为false (视为没有可对比的旧输出)
func CountURLs(filepath string) (count int, ok bool) {
	if _, err := os.Stat(filepath); err != nil {
		return 0, false
	}

	file, err := os.Open(filepath)
	if err != nil {
		utils.Errorf("打开sitemap文件失败 [%s]: %v", filepath, err)
		return 0, false
	}
	defer file.Close()

	doc, err := xmlquery.Parse(file)
	if err != nil {
		utils.Errorf("解析sitemap文件失败 [%s]: %v", filepath, err)
		return 0, false
	}

	root := documentRoot(doc)
	if root == nil {
		utils.Warnf("sitemap文件没有根元素: %s", filepath)
		return 0, false
	}

	switch root.Data {
	case "urlset":
		return len(xmlquery.Find(doc, "//*[local-name()='url']")), true
	case "sitemapindex":
		return countIndexURLs(doc, filepath), true
	default:
		utils.Warnf("未知的sitemap根标签: %s", root.Data)
		return 0, false
	}
}

// countIndexURLs 递归累加索引引用的所有sitemap文件的URL数
// 索引中的loc是URL,取其path的文件名在索引文件同目录下查找
func countIndexURLs(doc *xmlquery.Node, indexPath string) int {
	baseDir := filepath.Dir(indexPath)
	total := 0

	nodes := xmlquery.Find(doc, "//*[local-name()='sitemap']/*[local-name()='loc']")
	for _, node := range nodes {
		loc := node.InnerText()
		parsed, err := url.Parse(loc)
		if err != nil {
			utils.Warnf("无法解析索引中的sitemap地址: %s", loc)
			continue
		}

		memberPath := filepath.Join(baseDir, filepath.Base(parsed.Path))
		count, ok := CountURLs(memberPath)
		if !ok {
			utils.Warnf("无法统计被引用sitemap的URL数: %s", memberPath)
			continue
		}
		total += count
	}
	return total
}

// documentRoot 返回文档的根元素节点
func documentRoot(doc *xmlquery.Node) *xmlquery.Node {
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}
