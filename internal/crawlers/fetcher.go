package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/SiteMapGen/internal/models"
	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
	"github.com/andybalholm/brotli"
)

// notParseableResources 不可解析的资源扩展名
// 这类URL不下载body,直接作为sitemap条目收录
var notParseableResources = []string{
	".epub", ".mobi", ".xlsx", ".docx", ".doc", ".opf", ".7z", ".ibooks",
	".cbr", ".avi", ".mkv", ".mp4", ".jpg", ".jpeg", ".png", ".gif",
	".iso", ".rar", ".tar", ".tgz", ".zip", ".dmg", ".exe", ".pdf",
}

// Fetcher 抓取器
// 职责: 对单个URL执行一次HTTP GET,分类结果并提取下游需要的响应头
type Fetcher struct {
	client    *http.Client
	userAgent string
	auth      bool
	username  string
	password  string
}

// NewFetcher 创建抓取器
// 禁用TLS证书验证,允许访问自签名、过期或主机名不匹配的HTTPS站点
func NewFetcher(config models.CrawlConfig, userAgent string) *Fetcher {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
			// 手动声明Accept-Encoding并自行解压,禁用transport自动解压
			DisableCompression: true,
		},
		Timeout: timeout,
	}

	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		auth:      config.Auth,
		username:  config.Username,
		password:  config.Password,
	}
}

// Client 返回底层HTTP客户端 (robots.txt加载复用同一客户端)
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch 抓取单个URL并分类结果
// 不可解析扩展名的URL跳过下载,HTTP/网络错误返回Error分类,
// 成功时body已按Content-Encoding完整解压
func (f *Fetcher) Fetch(currentURL string) *models.FetchOutcome {
	parsed, err := url.Parse(currentURL)
	if err == nil && hasNotParseableExtension(parsed.Path) {
		utils.Debugf("忽略 %s, 内容可能不可解析", currentURL)
		return &models.FetchOutcome{
			Kind:     models.OutcomeUnfetched,
			FinalURL: currentURL,
			Reason:   "not-parseable",
		}
	}

	req, err := http.NewRequest(http.MethodGet, currentURL, nil)
	if err != nil {
		return &models.FetchOutcome{
			Kind:     models.OutcomeError,
			FinalURL: currentURL,
			Reason:   fmt.Sprintf("构造请求失败: %v", err),
		}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if f.auth {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		utils.Debugf("%v ==> %s", err, currentURL)
		return &models.FetchOutcome{
			Kind:     models.OutcomeError,
			FinalURL: currentURL,
			Reason:   fmt.Sprintf("网络错误: %v", err),
		}
	}
	defer resp.Body.Close()

	// 重定向追踪后的最终URL
	finalURL := currentURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.Debugf("%v ===> %s", err, currentURL)
		return &models.FetchOutcome{
			Kind:       models.OutcomeError,
			FinalURL:   finalURL,
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("读取响应失败: %v", err),
		}
	}

	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" {
		decompressed, err := decompressResponse(encoding, body)
		if err != nil {
			utils.Warnf("解压响应失败 [%s] (编码=%s): %v", currentURL, encoding, err)
			// 解压失败,仍然尝试使用原始body
		} else {
			body = decompressed
		}
	}

	// 反爬虫拦截页检测
	if bytes.Contains(bytes.ToLower(body), []byte("anubis")) {
		utils.Warnf("警告: 在 %s 的响应中检测到 'anubis'", currentURL)
	}

	return &models.FetchOutcome{
		Kind:        models.OutcomeHTML,
		Body:        body,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		LastMod:     parseLastModified(resp.Header),
	}
}

// hasNotParseableExtension 判断路径是否以不可解析扩展名结尾
func hasNotParseableExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range notParseableResources {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// parseLastModified 解析Last-Modified响应头,缺失时回退到Date
func parseLastModified(header http.Header) *time.Time {
	value := header.Get("Last-Modified")
	if value == "" {
		value = header.Get("Date")
	}
	if value == "" {
		return nil
	}

	parsed, err := http.ParseTime(value)
	if err != nil {
		return nil
	}
	return &parsed
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
