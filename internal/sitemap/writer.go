// Package sitemap 实现sitemap的序列化输出与安全检查
//
// 输出格式是固定的字节级契约 (生成的sitemap需要可diff以纳入版本控制),
// 因此写入端采用字符串拼接而非XML库重排,读取端使用xmlquery
package sitemap

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/RecoveryAshes/SiteMapGen/internal/models"
	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9" xmlns:image="http://www.google.com/schemas/sitemap-image/1.1">`
	xmlFooter = `</urlset>`

	sitemapindexHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	sitemapindexFooter = `</sitemapindex>`
)

// EscapeLoc 对URL做sitemap要求的字符转义
// 替换顺序固定: 空格、&、双引号、<、>
func EscapeLoc(text string) string {
	text = strings.ReplaceAll(text, " ", "%20")
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, `"`, "&quot;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

// RenderEntry 将条目序列化为<url>元素字符串
func RenderEntry(entry models.SitemapEntry) string {
	var sb strings.Builder
	sb.WriteString("<url><loc>")
	sb.WriteString(EscapeLoc(entry.Loc))
	sb.WriteString("</loc>")

	if entry.LastMod != nil {
		sb.WriteString("<lastmod>")
		sb.WriteString(entry.LastMod.UTC().Format("2006-01-02T15:04:05"))
		sb.WriteString("+00:00")
		sb.WriteString("</lastmod>")
	}

	for _, image := range entry.Images {
		sb.WriteString("<image:image><image:loc>")
		sb.WriteString(EscapeLoc(image))
		sb.WriteString("</image:loc></image:image>")
	}

	sb.WriteString("</url>")
	return sb.String()
}

// Writer sitemap输出写入器
// 职责: 排序、漂移阈值安全检查、50000条上限拆分和索引文件生成
type Writer struct {
	config models.CrawlConfig
}

// NewWriter 创建写入器
func NewWriter(config models.CrawlConfig) *Writer {
	return &Writer{config: config}
}

// Write 校验并持久化全部条目
// 漂移检查失败时返回*models.DriftExceededError且不写入任何文件,
// 输出路径为空时写到标准输出
func (w *Writer) Write(entries []models.SitemapEntry) error {
	urlStrings := make([]string, 0, len(entries))
	for _, entry := range entries {
		urlStrings = append(urlStrings, RenderEntry(entry))
	}

	// 排序换取输出确定性 (可diff),代价是丢失爬取顺序信息
	if w.config.SortAlphabetically {
		sort.Strings(urlStrings)
	}

	// 漂移阈值安全检查: 在打开输出文件之前完成,失败时不触碰已有输出
	if w.config.MaxURLDiff >= 0 && w.config.Output != "" {
		oldCount, ok := CountURLs(w.config.Output)
		if ok {
			newCount := len(urlStrings)
			diff := newCount - oldCount
			if diff < 0 {
				diff = -diff
			}
			utils.Infof("URL数量对比 - 旧: %d, 新: %d, 差异: %d, 阈值: %d",
				oldCount, newCount, diff, w.config.MaxURLDiff)

			if diff > w.config.MaxURLDiff {
				utils.Errorf("URL数量差异 (%d) 超过阈值 (%d), 跳过 %s 的更新",
					diff, w.config.MaxURLDiff, w.config.Domain)
				return &models.DriftExceededError{
					Domain:    w.config.Domain,
					OldCount:  oldCount,
					NewCount:  newCount,
					Threshold: w.config.MaxURLDiff,
				}
			}
			utils.Infof("URL数量差异检查通过 (%d <= %d)", diff, w.config.MaxURLDiff)
		}
	}

	var out io.Writer = os.Stdout
	if w.config.Output != "" {
		file, err := os.Create(w.config.Output)
		if err != nil {
			return fmt.Errorf("打开输出文件失败: %w", err)
		}
		defer file.Close()
		out = file
	}

	// 超过单文件上限且请求了索引模式时才拆分,保持向后兼容
	if len(urlStrings) > models.MaxURLsPerSitemap && w.config.AsIndex {
		return w.writeIndexAndSitemapFiles(out, urlStrings)
	}
	return writeSitemapFile(out, urlStrings)
}

// writeSitemapFile 写出一个完整的sitemap文件
func writeSitemapFile(out io.Writer, urlStrings []string) error {
	if _, err := fmt.Fprintln(out, xmlHeader); err != nil {
		return fmt.Errorf("写入sitemap失败: %w", err)
	}
	for _, urlString := range urlStrings {
		if _, err := fmt.Fprintln(out, urlString); err != nil {
			return fmt.Errorf("写入sitemap失败: %w", err)
		}
	}
	if _, err := fmt.Fprintln(out, xmlFooter); err != nil {
		return fmt.Errorf("写入sitemap失败: %w", err)
	}
	return nil
}

// writeIndexAndSitemapFiles 拆分为编号sitemap文件并写出索引
// 编号文件命名为<basename>-<i><ext>,索引条目指向目标域名下的同名路径
func (w *Writer) writeIndexAndSitemapFiles(indexOut io.Writer, urlStrings []string) error {
	ext := extOf(w.config.Output)
	base := strings.TrimSuffix(w.config.Output, ext)

	numFiles := int(math.Ceil(float64(len(urlStrings)) / float64(models.MaxURLsPerSitemap)))
	filenames := make([]string, 0, numFiles)
	for i := 0; i < numFiles; i++ {
		filenames = append(filenames, fmt.Sprintf("%s-%d%s", base, i, ext))
	}

	if err := w.writeSitemapIndex(indexOut, filenames); err != nil {
		return err
	}

	for i, filename := range filenames {
		start := i * models.MaxURLsPerSitemap
		end := start + models.MaxURLsPerSitemap
		if end > len(urlStrings) {
			end = len(urlStrings)
		}

		file, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("打开索引成员sitemap文件失败 [%s]: %w", filename, err)
		}
		if err := writeSitemapFile(file, urlStrings[start:end]); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("关闭sitemap文件失败 [%s]: %w", filename, err)
		}
		utils.Debugf("已写入sitemap分片: %s (%d条)", filename, end-start)
	}

	return nil
}

// writeSitemapIndex 写出索引文件本体
func (w *Writer) writeSitemapIndex(out io.Writer, filenames []string) error {
	if _, err := fmt.Fprintln(out, sitemapindexHeader); err != nil {
		return fmt.Errorf("写入sitemap索引失败: %w", err)
	}
	for _, filename := range filenames {
		loc := url.URL{
			Scheme: w.config.Scheme(),
			Host:   w.config.TargetHost(),
			Path:   ensureLeadingSlash(filename),
		}
		if _, err := fmt.Fprintln(out, "<sitemap><loc>"+loc.String()+"</loc></sitemap>"); err != nil {
			return fmt.Errorf("写入sitemap索引失败: %w", err)
		}
	}
	if _, err := fmt.Fprintln(out, sitemapindexFooter); err != nil {
		return fmt.Errorf("写入sitemap索引失败: %w", err)
	}
	return nil
}

// extOf 返回路径最后一段的扩展名 (含点)
func extOf(path string) string {
	idx := strings.LastIndex(path, ".")
	slash := strings.LastIndexAny(path, `/\`)
	if idx <= slash {
		return ""
	}
	return path[idx:]
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
