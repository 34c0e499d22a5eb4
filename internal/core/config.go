package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/SiteMapGen/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl   CrawlDefaults `mapstructure:"crawl"`
	Logging LoggingConfig `mapstructure:"logging"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// CrawlDefaults 爬取参数默认值
type CrawlDefaults struct {
	NumWorkers         int    `mapstructure:"num_workers"`
	Timeout            int    `mapstructure:"timeout"`
	UserAgent          string `mapstructure:"user_agent"`
	SortAlphabetically bool   `mapstructure:"sort_alphabetically"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// AuthConfig HTTP基本认证凭据 (仅来自配置文件,不走命令行)
type AuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sitemapgen"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.num_workers", 1)
	v.SetDefault("crawl.timeout", 30)
	v.SetDefault("crawl.user_agent", "*")
	v.SetDefault("crawl.sort_alphabetically", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}

// batchOverride 批量配置文件中单个域名的覆盖项
// 指针字段为nil表示沿用命令行/默认值
type batchOverride struct {
	Domain             *string  `json:"domain"`
	SitemapURLs        []string `json:"sitemap_url"`
	SitemapOnly        *bool    `json:"sitemap_only"`
	NumWorkers         *int     `json:"num_workers"`
	ParseRobots        *bool    `json:"parserobots"`
	UserAgent          *string  `json:"user_agent"`
	Timeout            *int     `json:"timeout"`
	Auth               *bool    `json:"auth"`
	Images             *bool    `json:"images"`
	Exclude            []string `json:"exclude"`
	SkipExt            []string `json:"skipext"`
	Drop               []string `json:"drop"`
	Output             *string  `json:"output"`
	AsIndex            *bool    `json:"as_index"`
	SortAlphabetically *bool    `json:"sort_alphabetically"`
	MaxURLDiff         *int     `json:"max_url_diff"`
	Report             *bool    `json:"report"`
}

// LoadBatchConfigs 加载JSON批量配置文件
// 文件内容为对象数组,每个对象的键覆盖base中对应的字段,
// 未出现的键沿用base值,实现多域名批量驱动
func LoadBatchConfigs(batchFile string, base models.CrawlConfig) ([]models.CrawlConfig, error) {
	data, err := os.ReadFile(batchFile)
	if err != nil {
		return nil, fmt.Errorf("读取批量配置文件失败: %w", err)
	}

	var overrides []batchOverride
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("解析批量配置文件失败: %w", err)
	}

	configs := make([]models.CrawlConfig, 0, len(overrides))
	for _, o := range overrides {
		cfg := base
		if o.Domain != nil {
			cfg.Domain = *o.Domain
		}
		if o.SitemapURLs != nil {
			cfg.SitemapURLs = o.SitemapURLs
		}
		if o.SitemapOnly != nil {
			cfg.SitemapOnly = *o.SitemapOnly
		}
		if o.NumWorkers != nil {
			cfg.NumWorkers = *o.NumWorkers
		}
		if o.ParseRobots != nil {
			cfg.ParseRobots = *o.ParseRobots
		}
		if o.UserAgent != nil {
			cfg.UserAgent = *o.UserAgent
		}
		if o.Timeout != nil {
			cfg.Timeout = *o.Timeout
		}
		if o.Auth != nil {
			cfg.Auth = *o.Auth
		}
		if o.Images != nil {
			cfg.Images = *o.Images
		}
		if o.Exclude != nil {
			cfg.Exclude = o.Exclude
		}
		if o.SkipExt != nil {
			cfg.SkipExt = o.SkipExt
		}
		if o.Drop != nil {
			cfg.Drop = o.Drop
		}
		if o.Output != nil {
			cfg.Output = *o.Output
		}
		if o.AsIndex != nil {
			cfg.AsIndex = *o.AsIndex
		}
		if o.SortAlphabetically != nil {
			cfg.SortAlphabetically = *o.SortAlphabetically
		}
		if o.MaxURLDiff != nil {
			cfg.MaxURLDiff = *o.MaxURLDiff
		}
		if o.Report != nil {
			cfg.Report = *o.Report
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}
