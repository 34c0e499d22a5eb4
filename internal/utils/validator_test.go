package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TestValidateURL 测试URL格式验证
func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{"合法https URL", "https://example.com", false},
		{"合法http URL带路径", "http://example.com/path", false},
		{"缺少协议", "example.com", true},
		{"不支持的协议", "ftp://example.com", true},
		{"缺少主机名", "https://", true},
		{"空字符串", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) = %v, wantErr = %v", tt.rawURL, err, tt.wantErr)
			}
		})
	}
}

// TestReadURLsFromFile 测试URL清单文件解析
func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := `# 注释行
https://example.com/a

  https://example.com/b
not-a-url
https://
http://example.com/c
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile() 失败: %v", err)
	}

	expected := []string{
		"https://example.com/a",
		"https://example.com/b",
		"http://example.com/c",
	}
	if !reflect.DeepEqual(urls, expected) {
		t.Errorf("urls = %v, 期望 %v (注释/空行/非法行全部跳过)", urls, expected)
	}
}

// TestReadURLsFromFileMissing 测试文件不存在时的错误
func TestReadURLsFromFileMissing(t *testing.T) {
	if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}
