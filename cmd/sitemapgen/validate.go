package main

import (
	"fmt"

	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(
	domain string,
	batchFile string,
	numWorkers int,
	timeout int,
	output string,
	asIndex bool,
	maxURLDiff int,
) error {
	// 域名和批量配置至少提供其一
	if domain == "" && batchFile == "" {
		return fmt.Errorf("需要指定 --domain 或 --config-file 之一")
	}

	if domain != "" {
		if err := utils.ValidateURL(domain); err != nil {
			return fmt.Errorf("无效的目标域名: %w", err)
		}
	}

	if numWorkers < 1 || numWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", numWorkers)
	}

	if timeout < 0 || timeout > 600 {
		return fmt.Errorf("超时时间必须在0-600秒之间,当前值: %d", timeout)
	}

	if asIndex && output == "" {
		return fmt.Errorf("--as-index 需要同时指定 --output")
	}

	if maxURLDiff >= 0 && output == "" {
		return fmt.Errorf("--max-url-diff 需要同时指定 --output")
	}

	return nil
}
