package sitemap

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
)

// defaultStaticExtensions 目录扫描默认收录的静态文件扩展名
var defaultStaticExtensions = []string{
	".html", ".htm", ".pdf", ".txt", ".xml", ".json", ".css", ".js",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".woff", ".woff2", ".ttf", ".eot", ".mp4", ".webm", ".mp3",
	".xls", ".xlsx", ".doc", ".docx", ".ppt", ".pptx", ".csv",
}

// GenerateFromFile 从URL列表文件生成sitemap
// 文件中每行一个URL,仅收录http开头的行
func GenerateFromFile(inputFile string, outputFile string) (int, error) {
	urls, err := utils.ReadURLsFromFile(inputFile)
	if err != nil {
		return 0, err
	}

	if err := writeManualSitemap(urls, outputFile); err != nil {
		return 0, err
	}
	return len(urls), nil
}

// GenerateFromDirectory 扫描目录中的静态文件生成sitemap
// 按扩展名过滤,相对路径拼接到baseURL上,结果排序后写出
func GenerateFromDirectory(directory string, baseURL string, outputFile string, extensions []string) (int, error) {
	if len(extensions) == 0 {
		extensions = defaultStaticExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return 0, fmt.Errorf("解析baseURL失败: %w", err)
	}

	urls := make([]string, 0)
	err = filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		relPath, err := filepath.Rel(directory, path)
		if err != nil {
			return err
		}

		// 统一为URL风格的正斜杠路径
		urlPath := filepath.ToSlash(relPath)
		ref, err := url.Parse(urlPath)
		if err != nil {
			utils.Warnf("跳过无法转换为URL的文件: %s", path)
			return nil
		}
		urls = append(urls, base.ResolveReference(ref).String())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("扫描目录失败: %w", err)
	}

	// 排序保证输出一致性
	sort.Strings(urls)

	if err := writeManualSitemap(urls, outputFile); err != nil {
		return 0, err
	}
	return len(urls), nil
}

// DownloadFile 下载文件到本地路径 (生成sitemap前的可选准备步骤)
func DownloadFile(sourceURL string, destinationPath string) error {
	if destDir := filepath.Dir(destinationPath); destDir != "" {
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return fmt.Errorf("创建下载目录失败: %w", err)
		}
	}

	utils.Infof("从 %s 下载中...", sourceURL)
	req, err := http.NewRequest(http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("构造下载请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("下载失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("下载失败: HTTP %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取下载内容失败: %w", err)
	}

	if err := os.WriteFile(destinationPath, content, 0644); err != nil {
		return fmt.Errorf("保存下载文件失败: %w", err)
	}

	utils.Infof("✅ 下载完成: %s", destinationPath)
	return nil
}

// writeManualSitemap 写出缩进格式的简单sitemap
// 手动生成器不做转义和拆分,URL列表由调用方负责,
// 输出路径为空时写到标准输出
func writeManualSitemap(urls []string, outputFile string) error {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")

	for _, u := range urls {
		sb.WriteString("  <url>\n")
		sb.WriteString("    <loc>" + u + "</loc>\n")
		sb.WriteString("  </url>\n")
	}

	sb.WriteString("</urlset>")

	if outputFile == "" {
		_, err := fmt.Fprintln(os.Stdout, sb.String())
		return err
	}

	if err := os.WriteFile(outputFile, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("写入sitemap文件失败: %w", err)
	}
	return nil
}
