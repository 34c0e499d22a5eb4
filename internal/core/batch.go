package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/SiteMapGen/internal/models"
	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
)

// failureLogName 批量运行失败域名清单文件名
const failureLogName = "sitemap_failures.txt"

// BatchFailure 批量运行中单个域名的失败记录
type BatchFailure struct {
	Domain string
	Reason string
	// Drift 漂移阈值违例时为true, 此类失败会跳过而非中断批次
	Drift bool
}

// BatchSummary 批量运行结果汇总
type BatchSummary struct {
	Total     int
	Succeeded int
	Failures  []BatchFailure
}

// HasFailures 批次中是否存在失败域名
func (s *BatchSummary) HasFailures() bool {
	return len(s.Failures) > 0
}

// BatchCrawler 多域名批量爬取驱动器
// 域名间彼此隔离: 单个域名失败 (包括漂移保护触发) 不影响后续域名
type BatchCrawler struct {
	configs []models.CrawlConfig
}

// NewBatchCrawler 创建批量爬取驱动器
func NewBatchCrawler(configs []models.CrawlConfig) *BatchCrawler {
	return &BatchCrawler{configs: configs}
}

// Run 顺序执行所有域名的爬取任务
// 全部域名执行完毕后打印失败汇总并落盘失败清单
func (b *BatchCrawler) Run() *BatchSummary {
	summary := &BatchSummary{Total: len(b.configs)}
	startTime := time.Now()

	utils.Infof("🚀 开始批量爬取, 共 %d 个域名", len(b.configs))

	for i, config := range b.configs {
		utils.Infof("📋 [%d/%d] 开始处理域名: %s", i+1, len(b.configs), config.Domain)

		if err := b.runOne(config); err != nil {
			var driftErr *models.DriftExceededError
			if errors.As(err, &driftErr) {
				// 漂移保护触发: 旧输出保持原样, 记录并继续下一个域名
				utils.Warnf("SKIPPED: domain %s - %s", config.Domain, driftErr.Error())
				summary.Failures = append(summary.Failures, BatchFailure{
					Domain: config.Domain,
					Reason: driftErr.Error(),
					Drift:  true,
				})
				continue
			}

			utils.Errorf("域名 %s 爬取失败: %v", config.Domain, err)
			summary.Failures = append(summary.Failures, BatchFailure{
				Domain: config.Domain,
				Reason: err.Error(),
			})
			continue
		}

		summary.Succeeded++
	}

	utils.Infof("📊 批量爬取完成: 成功 %d/%d, 耗时 %.2f秒",
		summary.Succeeded, summary.Total, time.Since(startTime).Seconds())

	if summary.HasFailures() {
		b.reportFailures(summary)
	}
	return summary
}

// runOne 执行单个域名的完整爬取流程
func (b *BatchCrawler) runOne(config models.CrawlConfig) error {
	crawler, err := NewCrawler(config)
	if err != nil {
		return err
	}

	if err := crawler.Run(); err != nil {
		return err
	}

	stats := crawler.GetStats()
	utils.PrintReport(stats, config.ParseRobots,
		len(config.Exclude) > 0 || len(config.SkipExt) > 0 || len(config.Drop) > 0)

	if config.Report {
		reporter := utils.NewReporter(reportDir(config), config.TargetHost())
		if reportErr := reporter.GenerateReport(config, stats); reportErr != nil {
			utils.Warnf("生成爬取报告失败: %v", reportErr)
		}
	}
	return nil
}

// reportFailures 打印失败汇总并写入失败清单文件
func (b *BatchCrawler) reportFailures(summary *BatchSummary) {
	utils.Warnf("❌ 共 %d 个域名失败:", len(summary.Failures))

	var lines []string
	for _, failure := range summary.Failures {
		utils.Warnf("  - %s: %s", failure.Domain, failure.Reason)
		lines = append(lines, fmt.Sprintf("%s\t%s", failure.Domain, failure.Reason))
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(failureLogName, []byte(content), 0644); err != nil {
		utils.Errorf("写入失败清单 %s 失败: %v", failureLogName, err)
		return
	}
	utils.Infof("失败清单已写入: %s", failureLogName)
}

// reportDir 报告输出目录: 有输出文件时跟随其目录, 否则当前目录
func reportDir(config models.CrawlConfig) string {
	if config.Output == "" {
		return "."
	}
	return filepath.Dir(config.Output)
}
