package core

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/SiteMapGen/internal/models"
)

func testConfig(t *testing.T, domain string) models.CrawlConfig {
	t.Helper()
	return models.CrawlConfig{
		Domain:             domain,
		NumWorkers:         1,
		Timeout:            5,
		UserAgent:          "*",
		Output:             filepath.Join(t.TempDir(), "sitemap.xml"),
		SortAlphabetically: true,
		MaxURLDiff:         -1,
	}
}

func entryLocs(entries []models.SitemapEntry) map[string]bool {
	locs := make(map[string]bool, len(entries))
	for _, entry := range entries {
		locs[entry.Loc] = true
	}
	return locs
}

// TestCrawlerBasicFlow 测试基础爬取流程: 同域链接收录, 跨域/非抓取协议丢弃
func TestCrawlerBasicFlow(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			w.Write([]byte(`<html><body>
<a href="/about">关于</a>
<a href="https://other.invalid/page">外链</a>
<a href="mailto:a@b.com">邮件</a>
<a href="#top">顶部</a>
</body></html>`))
		case "/about":
			w.Write([]byte(`<html><body><a href="/">首页</a></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	crawler, err := NewCrawler(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	locs := entryLocs(crawler.Entries())
	if !locs[server.URL+"/about"] {
		t.Errorf("同域链接/about应被收录, 实际条目: %v", locs)
	}
	for loc := range locs {
		if strings.Contains(loc, "other.invalid") {
			t.Errorf("跨域链接不应被收录: %s", loc)
		}
		if strings.Contains(loc, "mailto") {
			t.Errorf("mailto链接不应被收录: %s", loc)
		}
	}

	stats := crawler.GetStats()
	if stats.NumCrawled < 2 {
		t.Errorf("NumCrawled = %d, 期望至少爬取根页面和/about", stats.NumCrawled)
	}
	if stats.ResponseCodes[200] < 2 {
		t.Errorf("ResponseCodes[200] = %d, 期望至少2", stats.ResponseCodes[200])
	}
}

// TestCrawlerSitemapFlow 测试sitemap索引到叶子的合并流程
func TestCrawlerSitemapFlow(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<sitemap><loc>` + server.URL + `/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`))
		case "/sitemap-pages.xml":
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>` + server.URL + `/page1</loc></url>
<url><loc>` + server.URL + `/page2</loc></url>
</urlset>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.SitemapURLs = []string{server.URL + "/sitemap.xml"}
	config.SitemapOnly = true

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	locs := entryLocs(crawler.Entries())
	if !locs[server.URL+"/page1"] || !locs[server.URL+"/page2"] {
		t.Errorf("叶子sitemap中的页面应被直接收录, 实际条目: %v", locs)
	}
	if locs[server.URL+"/sitemap.xml"] || locs[server.URL+"/sitemap-pages.xml"] {
		t.Error("sitemap文件本身不应作为页面收录")
	}
}

// TestCrawlerSitemapLeafFilters 测试叶子sitemap条目的域名与排除词过滤
func TestCrawlerSitemapLeafFilters(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>` + server.URL + `/keep</loc></url>
<url><loc>` + server.URL + `/private/drop</loc></url>
<url><loc>https://other.invalid/page</loc></url>
</urlset>`))
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.SitemapURLs = []string{server.URL + "/sitemap.xml"}
	config.SitemapOnly = true
	config.Exclude = []string{"/private/"}

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	locs := entryLocs(crawler.Entries())
	if !locs[server.URL+"/keep"] {
		t.Error("通过过滤的页面应被收录")
	}
	if locs[server.URL+"/private/drop"] {
		t.Error("包含排除词的页面不应被收录")
	}
	for loc := range locs {
		if strings.Contains(loc, "other.invalid") {
			t.Errorf("其他域名的页面不应被收录: %s", loc)
		}
	}
}

// TestCrawlerMarkedReportBuckets 测试report模式下非2xx链接记入报告桶
func TestCrawlerMarkedReportBuckets(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><a href="/missing">失效链接</a></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.Report = true

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	stats := crawler.GetStats()
	if stats.ResponseCodes[404] != 1 {
		t.Errorf("ResponseCodes[404] = %d, 期望 1", stats.ResponseCodes[404])
	}

	marked := stats.Marked[404]
	found := false
	for _, uri := range marked {
		if uri == server.URL+"/missing" {
			found = true
		}
	}
	if !found {
		t.Errorf("Marked[404] = %v, 期望包含 %s/missing", marked, server.URL)
	}

	// 404页面不进入输出
	if entryLocs(crawler.Entries())[server.URL+"/missing"] {
		t.Error("非2xx页面不应被收录")
	}
}

// TestCrawlerMarkedBucketsOffWithoutReport 测试未开启report时不记录报告桶
func TestCrawlerMarkedBucketsOffWithoutReport(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><a href="/missing">失效链接</a></body></html>`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	crawler, err := NewCrawler(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	stats := crawler.GetStats()
	if stats.ResponseCodes[404] != 1 {
		t.Errorf("ResponseCodes[404] = %d, 状态码直方图不受report开关影响", stats.ResponseCodes[404])
	}
	if len(stats.Marked[404]) != 0 {
		t.Errorf("Marked[404] = %v, 未开启report时应为空", stats.Marked[404])
	}
}

// TestCrawlerNon2xxSitemapNotIngested 测试错误页携带的sitemap内容不被采信
func TestCrawlerNon2xxSitemapNotIngested(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>` + server.URL + `/ghost-page</loc></url>
</urlset>`))
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.SitemapURLs = []string{server.URL + "/sitemap.xml"}
	config.SitemapOnly = true

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	if len(crawler.Entries()) != 0 {
		t.Errorf("非2xx响应中的sitemap条目不应进入输出: %v", entryLocs(crawler.Entries()))
	}
	if crawler.GetStats().ResponseCodes[404] != 1 {
		t.Error("404状态码应计入直方图")
	}
}

// TestCrawlerIndexBypassesExclusion 测试索引条目无视既有排除状态
func TestCrawlerIndexBypassesExclusion(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			// HTML链接先把叶子sitemap带进排除集合 (排除词"private")
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>
<a href="/private-sitemap.xml">叶子</a>
<a href="/index-of-sitemaps.xml">索引</a>
</body></html>`))
		case "/index-of-sitemaps.xml":
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<sitemap><loc>` + server.URL + `/private-sitemap.xml</loc></sitemap>
</sitemapindex>`))
		case "/private-sitemap.xml":
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>` + server.URL + `/listed-page</loc></url>
</urlset>`))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>ok</body></html>`))
		}
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.Exclude = []string{"private"}

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	// HTML发现路径排除了叶子sitemap, 但索引条目不受排除集合约束,
	// 其列出的页面最终进入输出
	if !entryLocs(crawler.Entries())[server.URL+"/listed-page"] {
		t.Errorf("索引引用的叶子sitemap应无视排除状态被爬取, 实际条目: %v",
			entryLocs(crawler.Entries()))
	}
}

// TestCrawlerCrossDomainRedirect 测试重定向出目标域名的整体丢弃
func TestCrawlerCrossDomainRedirect(t *testing.T) {
	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/elsewhere">别处</a></body></html>`))
	}))
	defer external.Close()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><a href="/moved">已迁移</a></body></html>`))
		case "/moved":
			http.Redirect(w, r, external.URL+"/landing", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	crawler, err := NewCrawler(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	for loc := range entryLocs(crawler.Entries()) {
		if strings.Contains(loc, external.URL) {
			t.Errorf("重定向出目标域名的页面不应被收录: %s", loc)
		}
	}
}

// TestCrawlerRobotsFiltering 测试robots.txt对链接合并的过滤
func TestCrawlerRobotsFiltering(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /admin/\n"))
		case "/":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>
<a href="/admin/panel">后台</a>
<a href="/public">公开页</a>
</body></html>`))
		case "/public":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>ok</body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.ParseRobots = true

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	locs := entryLocs(crawler.Entries())
	if locs[server.URL+"/admin/panel"] {
		t.Error("被robots.txt禁止的链接不应被收录")
	}
	if !locs[server.URL+"/public"] {
		t.Error("允许的链接应被收录")
	}

	stats := crawler.GetStats()
	if stats.NumRobotsBlock != 1 {
		t.Errorf("NumRobotsBlock = %d, 期望 1", stats.NumRobotsBlock)
	}
}

// TestCrawlerSkipExtAndExclude 测试扩展名与排除词过滤的计数
func TestCrawlerSkipExtAndExclude(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/" {
			w.Write([]byte(`<html><body>
<a href="/notes.txt">笔记</a>
<a href="/wiki?action=edit">编辑</a>
<a href="/normal">普通页</a>
</body></html>`))
			return
		}
		w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.SkipExt = []string{"txt"}
	config.Exclude = []string{"action=edit"}

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	locs := entryLocs(crawler.Entries())
	if locs[server.URL+"/notes.txt"] {
		t.Error("skipext扩展名的链接不应被爬取")
	}
	if !locs[server.URL+"/normal"] {
		t.Error("正常链接应被收录")
	}

	stats := crawler.GetStats()
	if stats.NumExcluded != 2 {
		t.Errorf("NumExcluded = %d, 期望 2 (txt扩展名 + action=edit)", stats.NumExcluded)
	}
}

// TestCrawlerUnfetchedResources 测试不可解析资源直接收录
func TestCrawlerUnfetchedResources(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/report.pdf">报告</a></body></html>`))
	}))
	defer server.Close()

	crawler, err := NewCrawler(testConfig(t, server.URL))
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	locs := entryLocs(crawler.Entries())
	if !locs[server.URL+"/report.pdf"] {
		t.Errorf("pdf资源应不经下载直接收录, 实际条目: %v", locs)
	}
}

// TestCrawlerMultiWorker 测试多worker轮次模式收录完整性
func TestCrawlerMultiWorker(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			w.Write([]byte(`<html><body>
<a href="/a">A</a><a href="/b">B</a><a href="/c">C</a>
</body></html>`))
		case "/a":
			w.Write([]byte(`<html><body><a href="/d">D</a></body></html>`))
		default:
			w.Write([]byte(`<html><body>leaf</body></html>`))
		}
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.NumWorkers = 4

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}
	if err := crawler.Run(); err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	locs := entryLocs(crawler.Entries())
	for _, path := range []string{"/a", "/b", "/c", "/d"} {
		if !locs[server.URL+path] {
			t.Errorf("多worker模式下 %s 应被收录", path)
		}
	}
	if crawler.Frontier().PendingCount() != 0 {
		t.Error("运行结束后待爬集合应为空")
	}
}

// TestCrawlerDriftAbort 测试漂移保护传播到调用方
func TestCrawlerDriftAbort(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>单页</body></html>`))
	}))
	defer server.Close()

	config := testConfig(t, server.URL)
	config.MaxURLDiff = 0

	// 先写出一个100条的旧sitemap
	oldContent := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" + `<urlset>` + "\n"
	for i := 0; i < 100; i++ {
		oldContent += "<url><loc>https://example.com/old</loc></url>\n"
	}
	oldContent += "</urlset>"
	if err := os.WriteFile(config.Output, []byte(oldContent), 0644); err != nil {
		t.Fatalf("写入旧sitemap失败: %v", err)
	}

	crawler, err := NewCrawler(config)
	if err != nil {
		t.Fatalf("NewCrawler() 失败: %v", err)
	}

	err = crawler.Run()
	var driftErr *models.DriftExceededError
	if !errors.As(err, &driftErr) {
		t.Fatalf("Run() = %v, 期望DriftExceededError", err)
	}
	if driftErr.OldCount != 100 {
		t.Errorf("OldCount = %d, 期望 100", driftErr.OldCount)
	}
}
