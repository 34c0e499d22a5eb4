package crawlers

import "sync"

// Frontier URL边界状态管理器
// 职责: 维护待爬/已爬(含爬取中)/已排除三个集合及发现计数器,
// 并发安全,三个集合在每轮结束时两两互斥
type Frontier struct {
	mu sync.Mutex

	// 待爬取URL集合
	toCrawl map[string]struct{}

	// 已爬取或正在爬取的URL集合
	// URL一旦进入此集合就不会再回到待爬集合
	crawledOrCrawling map[string]struct{}

	// 已排除URL集合 (robots/扩展名/排除词策略)
	// 排除是单调的,同一次运行内不会重新考虑
	excluded map[string]struct{}

	// 计数器 (单调递增)
	numDiscovered  int // 发现的URL总数
	numRobotsBlock int // 被robots.txt阻止的URL数
	numExcluded    int // 被扩展名/排除词策略排除的URL数
}

// NewFrontier 创建边界状态管理器
func NewFrontier() *Frontier {
	return &Frontier{
		toCrawl:           make(map[string]struct{}),
		crawledOrCrawling: make(map[string]struct{}),
		excluded:          make(map[string]struct{}),
		numDiscovered:     1, // 种子URL计为第一个发现的URL
	}
}

// Enqueue 将URL加入待爬集合
// URL已存在于任一集合时为no-op,返回是否实际加入
func (f *Frontier) Enqueue(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.toCrawl[link]; ok {
		return false
	}
	if _, ok := f.crawledOrCrawling[link]; ok {
		return false
	}
	if _, ok := f.excluded[link]; ok {
		return false
	}

	f.toCrawl[link] = struct{}{}
	return true
}

// EnqueueIgnoringExcluded 将URL加入待爬集合,无视已排除状态
// sitemap索引条目是基础设施而非内容,不受排除策略约束,
// 此前被排除的URL会被撤销排除以保持集合互斥
func (f *Frontier) EnqueueIgnoringExcluded(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.toCrawl[link]; ok {
		return false
	}
	if _, ok := f.crawledOrCrawling[link]; ok {
		return false
	}

	delete(f.excluded, link)
	f.toCrawl[link] = struct{}{}
	return true
}

// IsKnown 检查URL是否存在于任一集合中
func (f *Frontier) IsKnown(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.toCrawl[link]; ok {
		return true
	}
	if _, ok := f.crawledOrCrawling[link]; ok {
		return true
	}
	if _, ok := f.excluded[link]; ok {
		return true
	}
	return false
}

// IsCrawledOrCrawling 检查URL是否已爬取或正在爬取
func (f *Frontier) IsCrawledOrCrawling(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.crawledOrCrawling[link]
	return ok
}

// MarkCrawled 直接将URL标记为已爬取 (sitemap来源的URL不再抓取)
// URL已在已爬集合中时返回false
func (f *Frontier) MarkCrawled(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.crawledOrCrawling[link]; ok {
		return false
	}
	// 若还在待爬集合中,一并移除,保持集合互斥
	delete(f.toCrawl, link)
	f.crawledOrCrawling[link] = struct{}{}
	return true
}

// MarkExcluded 将URL标记为已排除 (幂等)
func (f *Frontier) MarkExcluded(link string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excluded[link] = struct{}{}
}

// PromoteAll 原子地取出当前全部待爬URL并移入已爬集合
// 多worker模式每轮调用一次,返回本轮快照
func (f *Frontier) PromoteAll() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make([]string, 0, len(f.toCrawl))
	for link := range f.toCrawl {
		snapshot = append(snapshot, link)
		f.crawledOrCrawling[link] = struct{}{}
	}
	f.toCrawl = make(map[string]struct{})
	return snapshot
}

// PromoteOne 取出任意一个待爬URL并移入已爬集合
// 单worker模式逐个使用,返回false表示待爬集合已空
func (f *Frontier) PromoteOne() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for link := range f.toCrawl {
		delete(f.toCrawl, link)
		f.crawledOrCrawling[link] = struct{}{}
		return link, true
	}
	return "", false
}

// PendingCount 返回待爬URL数量
func (f *Frontier) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.toCrawl)
}

// CountDiscovered 发现计数加一
func (f *Frontier) CountDiscovered() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numDiscovered++
}

// CountRobotsBlock robots阻止计数加一
func (f *Frontier) CountRobotsBlock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numRobotsBlock++
}

// CountExcluded 策略排除计数加一
func (f *Frontier) CountExcluded() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numExcluded++
}

// Counters 返回计数器快照 (发现/robots阻止/策略排除)
func (f *Frontier) Counters() (discovered int, robotsBlock int, excluded int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numDiscovered, f.numRobotsBlock, f.numExcluded
}
