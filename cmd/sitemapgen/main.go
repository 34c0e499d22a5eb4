package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/SiteMapGen/internal/core"
	"github.com/RecoveryAshes/SiteMapGen/internal/models"
	"github.com/RecoveryAshes/SiteMapGen/internal/sitemap"
	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 爬取参数
	domain      string
	sitemapURLs []string
	sitemapOnly bool
	numWorkers  int
	parseRobots bool
	userAgent   string
	useAuth     bool
	withImages  bool
	exclude     []string
	skipExt     []string
	drop        []string
	output      string
	asIndex     bool
	noSort      bool
	maxURLDiff  int
	report      bool
	timeout     int

	// 批量处理参数
	batchFile string

	// manual子命令参数
	manualInputFile  string
	manualOutput     string
	manualDirectory  string
	manualBaseURL    string
	manualExtensions []string
	downloadURL      string
	downloadDest     string
)

var rootCmd = &cobra.Command{
	Use:   "sitemapgen",
	Short: "网站sitemap.xml生成工具",
	Long: `SiteMapGen - 网站sitemap.xml自动生成工具 (Go版本)

通过广度优先爬取目标域名,自动生成符合sitemaps.org协议的sitemap.xml,支持:
  • 多worker并发爬取
  • 已有sitemap的索引/叶子文件解析与合并
  • robots.txt规则过滤
  • 图片收录 (image:image扩展)
  • 大站点自动分片与sitemapindex生成
  • 漂移阈值保护 (URL数量突变时拒绝覆盖旧文件)
  • JSON批量配置多域名驱动

使用示例:
  # 爬取单个域名并输出到文件
  sitemapgen --domain https://example.com --output sitemap.xml

  # 4个worker并发, 解析robots.txt, 收录图片
  sitemapgen --domain https://example.com -n 4 --parserobots --images

  # 批量驱动多个域名
  sitemapgen --config-file sites.json

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 设置信号处理(Ctrl+C优雅退出)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		go func() {
			sig := <-sigChan
			utils.Warnf("\n收到中断信号: %v, 正在退出...", sig)
			os.Exit(0)
		}()

		if err := ValidateFlags(domain, batchFile, numWorkers, timeout, output, asIndex, maxURLDiff); err != nil {
			return err
		}

		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		base := buildCrawlConfig(cmd, appConfig)

		var configs []models.CrawlConfig
		if batchFile != "" {
			configs, err = core.LoadBatchConfigs(batchFile, base)
			if err != nil {
				return fmt.Errorf("加载批量配置失败: %w", err)
			}
		} else {
			configs = []models.CrawlConfig{base}
		}

		summary := core.NewBatchCrawler(configs).Run()
		if summary.HasFailures() {
			os.Exit(2)
		}
		return nil
	},
}

// buildCrawlConfig 用命令行参数与配置文件组装单域名爬取配置
// 优先级: 显式命令行参数 > 配置文件 > 内置默认值
func buildCrawlConfig(cmd *cobra.Command, appConfig *core.Config) models.CrawlConfig {
	config := models.CrawlConfig{
		Domain:             domain,
		SitemapURLs:        sitemapURLs,
		SitemapOnly:        sitemapOnly,
		NumWorkers:         numWorkers,
		ParseRobots:        parseRobots,
		UserAgent:          userAgent,
		Timeout:            timeout,
		Auth:               useAuth,
		Images:             withImages,
		Exclude:            exclude,
		SkipExt:            skipExt,
		Drop:               drop,
		Output:             output,
		AsIndex:            asIndex,
		SortAlphabetically: !noSort,
		MaxURLDiff:         maxURLDiff,
		Report:             report,
	}

	// 未显式指定的参数回退到配置文件值
	if !cmd.Flags().Changed("num-workers") && appConfig.Crawl.NumWorkers > 0 {
		config.NumWorkers = appConfig.Crawl.NumWorkers
	}
	if !cmd.Flags().Changed("timeout") && appConfig.Crawl.Timeout > 0 {
		config.Timeout = appConfig.Crawl.Timeout
	}
	if !cmd.Flags().Changed("user-agent") && appConfig.Crawl.UserAgent != "" {
		config.UserAgent = appConfig.Crawl.UserAgent
	}

	// 认证凭据只来自配置文件,避免泄漏到shell历史
	if config.Auth {
		config.Username = appConfig.Auth.Username
		config.Password = appConfig.Auth.Password
	}

	return config
}

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "不经爬取, 从URL清单或本地目录直接生成sitemap",
	Long: `从已有数据源直接生成sitemap.xml, 无需发起爬取:

  # 从URL清单文件生成 (每行一个URL, #开头为注释)
  sitemapgen manual --input-file urls.txt --output sitemap.xml

  # 扫描本地目录生成 (静态站点)
  sitemapgen manual --directory ./public --base-url https://example.com --output sitemap.xml

  # 下载远程文件到本地
  sitemapgen manual --download-url https://example.com/urls.txt --download-dest ./urls.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if downloadURL != "" {
			if downloadDest == "" {
				return fmt.Errorf("--download-url 需要同时指定 --download-dest")
			}
			if err := sitemap.DownloadFile(downloadURL, downloadDest); err != nil {
				return fmt.Errorf("下载失败: %w", err)
			}
			utils.Infof("✅ 已下载 %s 到 %s", downloadURL, downloadDest)
			if manualInputFile == "" && manualDirectory == "" {
				return nil
			}
		}

		switch {
		case manualInputFile != "":
			count, err := sitemap.GenerateFromFile(manualInputFile, manualOutput)
			if err != nil {
				return fmt.Errorf("从URL清单生成sitemap失败: %w", err)
			}
			utils.Infof("✅ 已从 %s 生成sitemap, 共 %d 条URL", manualInputFile, count)

		case manualDirectory != "":
			if manualBaseURL == "" {
				return fmt.Errorf("--directory 需要同时指定 --base-url")
			}
			count, err := sitemap.GenerateFromDirectory(manualDirectory, manualBaseURL, manualOutput, manualExtensions)
			if err != nil {
				return fmt.Errorf("从目录生成sitemap失败: %w", err)
			}
			utils.Infof("✅ 已从目录 %s 生成sitemap, 共 %d 条URL", manualDirectory, count)

		default:
			return fmt.Errorf("需要指定 --input-file 或 --directory 之一")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SiteMapGen %s (构建时间: %s)\n", Version, BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出 (debug级别日志)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace/debug/info/warn/error)")

	// 爬取参数
	rootCmd.Flags().StringVar(&domain, "domain", "", "目标域名 (如 https://example.com)")
	rootCmd.Flags().StringArrayVar(&sitemapURLs, "sitemap-url", nil, "已有sitemap URL, 优先加入爬取队列 (可重复)")
	rootCmd.Flags().BoolVar(&sitemapOnly, "sitemap-only", false, "只解析已有sitemap, 不爬取域名根")
	rootCmd.Flags().IntVarP(&numWorkers, "num-workers", "n", 1, "并发worker数")
	rootCmd.Flags().BoolVar(&parseRobots, "parserobots", false, "解析robots.txt并过滤被禁止的URL")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "*", "robots.txt规则匹配用的User-agent")
	rootCmd.Flags().BoolVar(&useAuth, "auth", false, "启用HTTP基本认证 (凭据来自配置文件)")
	rootCmd.Flags().BoolVar(&withImages, "images", false, "提取页面图片并以image:image扩展收录")
	rootCmd.Flags().StringArrayVar(&exclude, "exclude", nil, "排除包含指定子串的URL (可重复)")
	rootCmd.Flags().StringArrayVar(&skipExt, "skipext", nil, "排除指定扩展名的URL (可重复)")
	rootCmd.Flags().StringArrayVar(&drop, "drop", nil, "从URL中删除匹配正则的部分 (可重复)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "输出文件路径, 留空输出到stdout")
	rootCmd.Flags().BoolVar(&asIndex, "as-index", false, "超过单文件上限时拆分为sitemapindex")
	rootCmd.Flags().BoolVar(&noSort, "no-sort", false, "不对输出URL按字典序排序")
	rootCmd.Flags().IntVar(&maxURLDiff, "max-url-diff", -1, "新旧URL数量差异阈值, 超过则拒绝覆盖 (负数禁用)")
	rootCmd.Flags().BoolVar(&report, "report", false, "生成JSON爬取报告并记录异常状态码URL")
	rootCmd.Flags().IntVar(&timeout, "timeout", 30, "单次请求超时时间(秒)")
	rootCmd.Flags().StringVar(&batchFile, "config-file", "", "JSON批量配置文件, 驱动多个域名")

	// manual子命令参数
	manualCmd.Flags().StringVar(&manualInputFile, "input-file", "", "URL清单文件路径")
	manualCmd.Flags().StringVarP(&manualOutput, "output", "o", "", "输出文件路径, 留空输出到stdout")
	manualCmd.Flags().StringVar(&manualDirectory, "directory", "", "要扫描的本地目录")
	manualCmd.Flags().StringVar(&manualBaseURL, "base-url", "", "目录扫描模式下URL的基础前缀")
	manualCmd.Flags().StringArrayVar(&manualExtensions, "extensions", nil, "目录扫描时收录的扩展名 (可重复, 默认html/htm/php/pdf)")
	manualCmd.Flags().StringVar(&downloadURL, "download-url", "", "要下载的远程文件URL")
	manualCmd.Flags().StringVar(&downloadDest, "download-dest", "", "下载文件的本地保存路径")

	rootCmd.AddCommand(manualCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
