package core

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/SiteMapGen/internal/crawlers"
	"github.com/RecoveryAshes/SiteMapGen/internal/models"
	"github.com/RecoveryAshes/SiteMapGen/internal/sitemap"
	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
)

// crawlerUserAgent 抓取HTTP请求使用的User-Agent
// 与robots.txt规则匹配用的User-agent (config.UserAgent) 相互独立
const crawlerUserAgent = "SiteMapGen/1.0 (+https://github.com/RecoveryAshes/SiteMapGen)"

// Crawler 爬取协调器
// 职责: 驱动 播种 -> 轮次爬取 -> 排空 -> 写出 的完整流程
// 所有可变爬取状态都是实例状态,支持多域名批量并行运行
type Crawler struct {
	config     models.CrawlConfig
	targetHost string
	scheme     string

	normalizer *crawlers.Normalizer
	extractor  *crawlers.Extractor
	classifier *crawlers.Classifier
	fetcher    *crawlers.Fetcher
	frontier   *crawlers.Frontier
	monitor    *crawlers.ResourceMonitor
	robots     *crawlers.RobotsPolicy

	// sitemap输出缓冲
	entriesMu sync.Mutex
	entries   []models.SitemapEntry

	// 统计信息
	statsMu    sync.Mutex
	stats      models.CrawlStats
	numCrawled int
}

// NewCrawler 创建爬取协调器
// 配置错误在此快速失败,不发起任何网络活动
func NewCrawler(config models.CrawlConfig) (*Crawler, error) {
	if config.UserAgent == "" {
		config.UserAgent = "*"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	normalizer := crawlers.NewNormalizer(config.Drop)
	c := &Crawler{
		config:     config,
		targetHost: config.TargetHost(),
		scheme:     config.Scheme(),
		normalizer: normalizer,
		extractor:  crawlers.NewExtractor(normalizer, config.Domain, config.TargetHost(), config.Exclude),
		classifier: crawlers.NewClassifier(config.Scheme(), config.TargetHost()),
		fetcher:    crawlers.NewFetcher(config, crawlerUserAgent),
		frontier:   crawlers.NewFrontier(),
		monitor: crawlers.NewResourceMonitor(crawlers.ResourceMonitorConfig{
			MaxWorkersLimit: config.NumWorkers,
		}),
		stats: models.NewCrawlStats(),
	}

	c.seed()
	return c, nil
}

// seed 初始化待爬集合
// sitemap URL先于域名根加入,sitemap-only模式省略域名根;
// sitemap-only但没有提供sitemap URL时回退到域名根 (保持既有行为)
func (c *Crawler) seed() {
	for _, sitemapURL := range c.config.SitemapURLs {
		c.frontier.Enqueue(c.normalizer.CleanLink(sitemapURL))
		utils.Infof("已将sitemap URL加入爬取队列: %s", sitemapURL)
	}

	if !c.config.SitemapOnly {
		c.frontier.Enqueue(c.normalizer.CleanLink(c.config.Domain))
	} else if len(c.config.SitemapURLs) == 0 {
		utils.Warnf("sitemap_only=true 但未提供sitemap URL, 回退到爬取域名根")
		c.frontier.Enqueue(c.normalizer.CleanLink(c.config.Domain))
	}
}

// Run 执行完整爬取流程
// 漂移阈值违例时返回*models.DriftExceededError,已有输出保持原样
func (c *Crawler) Run() error {
	startTime := time.Now()

	c.robots = crawlers.NewRobotsPolicy(
		c.config.ParseRobots, c.config.UserAgent, c.config.Domain, c.fetcher.Client())

	utils.Infof("🚀 开始爬取流程")
	utils.Infof("目标域名: %s", c.config.Domain)
	utils.Infof("并发worker数: %d", c.config.NumWorkers)

	if c.config.NumWorkers == 1 {
		c.runSequential()
	} else {
		c.runRounds()
	}

	utils.Infof("爬取已到达所有已发现链接的末端")

	err := c.writeOutput()

	c.statsMu.Lock()
	c.stats.Duration = time.Since(startTime).Seconds()
	c.statsMu.Unlock()

	if err != nil {
		return err
	}

	utils.Infof("✅ 爬取任务完成, 共输出 %d 条URL, 耗时 %.2f秒",
		c.GetStats().NumOutputURLs, time.Since(startTime).Seconds())
	return nil
}

// runSequential 单worker模式: 逐个取出、爬取、合并
func (c *Crawler) runSequential() {
	for {
		currentURL, ok := c.frontier.PromoteOne()
		if !ok {
			return
		}
		c.crawlOne(currentURL)
	}
}

// runRounds 多worker模式: 轮次化扇出
// 每轮原子快照并清空待爬集合,全部成员并发分发到有界worker池,
// 轮内发现的新链接只会进入下一轮 (同步屏障即排空检测点)
func (c *Crawler) runRounds() {
	round := 0
	for {
		batch := c.frontier.PromoteAll()
		if len(batch) == 0 {
			return
		}
		round++

		workers := c.config.NumWorkers
		if limit := c.monitor.CalculateMaxWorkers(); limit < workers {
			workers = limit
		}
		utils.Debugf("第%d轮: %d个URL, %d个worker", round, len(batch), workers)

		bar := utils.NewProgressBar(len(batch), "爬取中")
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for _, currentURL := range batch {
			wg.Add(1)
			sem <- struct{}{}
			go func(link string) {
				defer wg.Done()
				defer func() { <-sem }()
				c.crawlOne(link)
				_ = bar.Add(1)
			}(currentURL)
		}
		wg.Wait()
	}
}

// crawlOne 爬取单个URL: 抓取、分类、提取、合并新发现
func (c *Crawler) crawlOne(currentURL string) {
	c.statsMu.Lock()
	utils.Infof("爬取 #%d: %s", c.numCrawled, currentURL)
	c.numCrawled++
	c.statsMu.Unlock()

	outcome := c.fetcher.Fetch(currentURL)

	switch outcome.Kind {
	case models.OutcomeError:
		if outcome.StatusCode > 0 {
			c.recordResponseCode(outcome.StatusCode, currentURL)
		}
		return

	case models.OutcomeUnfetched:
		// 未下载body的资源直接收录,无lastmod、无图片、无链接提取
		c.appendEntry(models.SitemapEntry{Loc: currentURL})
		return
	}

	is2xx := outcome.StatusCode >= 200 && outcome.StatusCode < 300

	// 非2xx的URL记入报告桶,report模式下可追溯具体出错链接
	markedURL := ""
	if !is2xx {
		markedURL = currentURL
	}
	c.recordResponseCode(outcome.StatusCode, markedURL)

	// XML优先: sitemap索引/叶子在此分流,识别失败则继续按HTML处理
	// 仅2xx响应参与sitemap识别,错误页携带的XML残片不可信
	if is2xx && crawlers.LooksLikeXML(outcome.ContentType, currentURL) {
		redirected := hostOf(currentURL) != c.targetHost && hostOf(outcome.FinalURL) == c.targetHost
		classification := c.classifier.ClassifyXML(outcome.Body, currentURL, redirected)
		switch classification.Kind {
		case crawlers.XMLIndex:
			c.mergeSitemapIndex(classification.URLs)
			return
		case crawlers.XMLLeaf:
			c.mergeSitemapLeaf(classification.URLs)
			return
		}
	}

	// 重定向出目标域名的页面整体丢弃: 不收录、不提取链接
	finalHost := hostOf(outcome.FinalURL)
	if finalHost != c.targetHost {
		utils.Infof("跳过 %s - 重定向到了其他域名 (%s != %s)", outcome.FinalURL, finalHost, c.targetHost)
		return
	}
	if !is2xx {
		utils.Infof("跳过 %s - 非2xx状态码: %d", outcome.FinalURL, outcome.StatusCode)
		return
	}

	var images []string
	if c.config.Images {
		for _, image := range c.extractor.ExtractImages(outcome.Body, currentURL) {
			// 图片额外经过robots策略检查
			if c.robots.IsAllowed(image) {
				utils.Debugf("发现图片: %s", image)
				images = append(images, image)
			}
		}
	}

	c.appendEntry(models.SitemapEntry{
		Loc:     outcome.FinalURL,
		LastMod: outcome.LastMod,
		Images:  images,
	})

	c.mergeLinks(c.extractor.ExtractLinks(outcome.Body, currentURL))
}

// mergeSitemapIndex 将索引中的子sitemap地址合并进待爬集合
// 索引条目是基础设施而非内容,跳过排除词过滤
func (c *Crawler) mergeSitemapIndex(sitemapURLs []string) {
	for _, sitemapURL := range sitemapURLs {
		if c.frontier.EnqueueIgnoringExcluded(sitemapURL) {
			utils.Debugf("已添加sitemap待爬: %s", sitemapURL)
		}
	}
}

// mergeSitemapLeaf 处理叶子sitemap中的页面地址
// 通过过滤的URL立即标记为已爬并直接收录,不再重新抓取
func (c *Crawler) mergeSitemapLeaf(pageURLs []string) {
	for _, pageURL := range pageURLs {
		if !strings.Contains(pageURL, c.targetHost) {
			continue
		}
		if !c.extractor.PassesExcludeFilter(pageURL) {
			utils.Debugf("已排除sitemap中的URL: %s", pageURL)
			c.frontier.CountExcluded()
			continue
		}
		if c.frontier.MarkCrawled(pageURL) {
			c.appendEntry(models.SitemapEntry{Loc: pageURL})
			c.frontier.CountDiscovered()
			utils.Debugf("已将sitemap中的URL加入输出: %s", pageURL)
		}
	}
}

// mergeLinks 对提取到的链接应用候选过滤并合并进待爬集合
func (c *Crawler) mergeLinks(links []string) {
	for _, link := range links {
		parsed, err := url.Parse(link)
		if err != nil {
			continue
		}

		if c.frontier.IsKnown(link) {
			continue
		}
		if parsed.Host != c.targetHost {
			continue
		}
		if (parsed.Path == "" || parsed.Path == "/") && parsed.RawQuery == "" {
			continue
		}
		if strings.Contains(link, "javascript") {
			continue
		}
		if crawlers.IsImagePath(parsed.Path) {
			continue
		}
		if strings.HasPrefix(parsed.Path, "data:") {
			continue
		}

		c.frontier.CountDiscovered()

		if !c.robots.IsAllowed(link) {
			c.frontier.MarkExcluded(link)
			c.frontier.CountRobotsBlock()
			continue
		}

		ext := strings.TrimPrefix(filepath.Ext(parsed.Path), ".")
		if ext != "" && containsString(c.config.SkipExt, ext) {
			c.frontier.MarkExcluded(link)
			c.frontier.CountExcluded()
			continue
		}

		if !c.extractor.PassesExcludeFilter(link) {
			c.frontier.MarkExcluded(link)
			c.frontier.CountExcluded()
			continue
		}

		c.frontier.Enqueue(link)
	}
}

// writeOutput 排空后调用输出写入器
func (c *Crawler) writeOutput() error {
	c.entriesMu.Lock()
	entries := make([]models.SitemapEntry, len(c.entries))
	copy(entries, c.entries)
	c.entriesMu.Unlock()

	writer := sitemap.NewWriter(c.config)
	err := writer.Write(entries)

	discovered, robotsBlock, excluded := c.frontier.Counters()
	c.statsMu.Lock()
	c.stats.NumDiscovered = discovered
	c.stats.NumRobotsBlock = robotsBlock
	c.stats.NumExcluded = excluded
	c.stats.NumCrawled = c.numCrawled
	c.stats.NumOutputURLs = len(entries)
	c.statsMu.Unlock()

	return err
}

// appendEntry 追加一条输出条目 (并发安全)
func (c *Crawler) appendEntry(entry models.SitemapEntry) {
	c.entriesMu.Lock()
	c.entries = append(c.entries, entry)
	c.entriesMu.Unlock()
}

// recordResponseCode 记录状态码直方图
// markedURL非空且report模式开启时,URL记入对应状态码的报告桶
func (c *Crawler) recordResponseCode(code int, markedURL string) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	c.stats.ResponseCodes[code]++
	if markedURL != "" && c.config.Report {
		c.stats.Marked[code] = append(c.stats.Marked[code], markedURL)
	}
}

// GetStats 获取统计信息快照
func (c *Crawler) GetStats() models.CrawlStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	stats := c.stats
	stats.NumCrawled = c.numCrawled
	return stats
}

// Entries 返回当前输出缓冲的副本
func (c *Crawler) Entries() []models.SitemapEntry {
	c.entriesMu.Lock()
	defer c.entriesMu.Unlock()

	entries := make([]models.SitemapEntry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// Frontier 返回边界状态 (供测试观察集合不变量)
func (c *Crawler) Frontier() *crawlers.Frontier {
	return c.frontier
}

// hostOf 返回URL的host部分,解析失败返回空串
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// containsString 检查字符串切片是否包含目标值
func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
