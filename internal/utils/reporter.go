package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/RecoveryAshes/SiteMapGen/internal/models"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Reporter 报告生成器
type Reporter struct {
	outputDir string
	domain    string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string, domain string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		domain:    domain,
	}
}

// CrawlReport 单次运行的JSON报告
type CrawlReport struct {
	RunID     string             `json:"run_id"`     // 运行唯一ID (UUID)
	Domain    string             `json:"domain"`     // 目标域名
	StartTime time.Time          `json:"start_time"` // 开始时间
	EndTime   time.Time          `json:"end_time"`   // 结束时间
	Stats     models.CrawlStats  `json:"stats"`      // 爬取统计
	Config    models.CrawlConfig `json:"config"`     // 本次运行配置
}

// GenerateReport 生成JSON爬取报告
func (r *Reporter) GenerateReport(config models.CrawlConfig, stats models.CrawlStats) error {
	reportsDir := filepath.Join(r.outputDir, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	report := CrawlReport{
		RunID:     uuid.New().String(),
		Domain:    r.domain,
		StartTime: time.Now().Add(-time.Duration(stats.Duration * float64(time.Second))),
		EndTime:   time.Now(),
		Stats:     stats,
		Config:    config,
	}

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	reportPath := filepath.Join(reportsDir, "crawl_report.json")
	if err := os.WriteFile(reportPath, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Infof("✅ 报告已生成: %s", reportPath)
	return nil
}

// PrintReport 打印控制台统计报告
func PrintReport(stats models.CrawlStats, parseRobots bool, hasFilters bool) {
	fmt.Printf("发现URL数: %d\n", stats.NumDiscovered)
	fmt.Printf("爬取链接数: %d\n", stats.NumCrawled)
	if parseRobots {
		fmt.Printf("被robots.txt阻止的链接数: %d\n", stats.NumRobotsBlock)
	}
	if hasFilters {
		fmt.Printf("被排除的链接数: %d\n", stats.NumExcluded)
	}

	// 按状态码升序输出直方图
	codes := make([]int, 0, len(stats.ResponseCodes))
	for code := range stats.ResponseCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("HTTP状态码 %d 的数量: %d\n", code, stats.ResponseCodes[code])
	}

	markedCodes := make([]int, 0, len(stats.Marked))
	for code := range stats.Marked {
		markedCodes = append(markedCodes, code)
	}
	sort.Ints(markedCodes)
	for _, code := range markedCodes {
		fmt.Printf("状态码为 %d 的链接:\n", code)
		for _, uri := range stats.Marked[code] {
			fmt.Printf("\t- %s\n", uri)
		}
	}
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
