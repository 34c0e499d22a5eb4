package sitemap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
}

// TestCountURLsUrlset 测试普通sitemap的URL统计
func TestCountURLsUrlset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitemap.xml")
	writeFile(t, path, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>https://example.com/a</loc></url>
<url><loc>https://example.com/b</loc></url>
<url><loc>https://example.com/c</loc></url>
</urlset>`)

	count, ok := CountURLs(path)
	if !ok || count != 3 {
		t.Errorf("CountURLs = (%d, %v), 期望 (3, true)", count, ok)
	}
}

// TestCountURLsIndex 测试索引文件的递归统计
func TestCountURLsIndex(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "sitemap-0.xml"), `<urlset>
<url><loc>https://example.com/a</loc></url>
<url><loc>https://example.com/b</loc></url>
</urlset>`)
	writeFile(t, filepath.Join(dir, "sitemap-1.xml"), `<urlset>
<url><loc>https://example.com/c</loc></url>
</urlset>`)

	indexPath := filepath.Join(dir, "sitemap.xml")
	writeFile(t, indexPath, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<sitemap><loc>https://example.com/sitemap-0.xml</loc></sitemap>
<sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap>
</sitemapindex>`)

	count, ok := CountURLs(indexPath)
	if !ok || count != 3 {
		t.Errorf("CountURLs = (%d, %v), 期望递归统计出 (3, true)", count, ok)
	}
}

// TestCountURLsIndexMissingMember 测试索引引用的文件缺失时跳过
func TestCountURLsIndexMissingMember(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "sitemap-0.xml"), `<urlset>
<url><loc>https://example.com/a</loc></url>
</urlset>`)

	indexPath := filepath.Join(dir, "sitemap.xml")
	writeFile(t, indexPath, `<sitemapindex>
<sitemap><loc>https://example.com/sitemap-0.xml</loc></sitemap>
<sitemap><loc>https://example.com/missing.xml</loc></sitemap>
</sitemapindex>`)

	count, ok := CountURLs(indexPath)
	if !ok || count != 1 {
		t.Errorf("CountURLs = (%d, %v), 期望缺失成员被跳过后 (1, true)", count, ok)
	}
}

// TestCountURLsFailures 测试无法统计的情况
func TestCountURLsFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("文件不存在", func(t *testing.T) {
		if _, ok := CountURLs(filepath.Join(dir, "nope.xml")); ok {
			t.Error("不存在的文件应返回ok=false")
		}
	})

	t.Run("未知根标签", func(t *testing.T) {
		path := filepath.Join(dir, "rss.xml")
		writeFile(t, path, `<rss version="2.0"><channel></channel></rss>`)
		if _, ok := CountURLs(path); ok {
			t.Error("非sitemap根标签应返回ok=false")
		}
	})

	t.Run("空文件", func(t *testing.T) {
		path := filepath.Join(dir, "empty.xml")
		writeFile(t, path, "")
		if _, ok := CountURLs(path); ok {
			t.Error("空文件应返回ok=false")
		}
	})
}
