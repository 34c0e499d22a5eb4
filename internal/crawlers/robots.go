package crawlers

import (
	"net/http"
	"net/url"

	"github.com/RecoveryAshes/SiteMapGen/internal/utils"
	"github.com/temoto/robotstxt"
)

// RobotsPolicy robots.txt策略评估器
// 启动时加载一次robots.txt,任何获取/解析失败都进入fail-open状态
// (始终允许)——礼貌性是尽力而为,不以牺牲完整性为代价
type RobotsPolicy struct {
	enabled   bool
	userAgent string
	data      *robotstxt.RobotsData // nil表示fail-open
}

// NewRobotsPolicy 创建robots策略
// enabled为false时不发起任何请求,IsAllowed恒为true
func NewRobotsPolicy(enabled bool, userAgent string, domain string, client *http.Client) *RobotsPolicy {
	p := &RobotsPolicy{
		enabled:   enabled,
		userAgent: userAgent,
	}

	if !enabled {
		return p
	}

	parsed, err := url.Parse(domain)
	if err != nil || parsed.Host == "" {
		utils.Warnf("robots.txt: 无法从域名解析host, 进入fail-open状态: %v", err)
		return p
	}

	robotsURL := parsed.Scheme + "://" + parsed.Host + "/robots.txt"
	resp, err := client.Get(robotsURL)
	if err != nil {
		utils.Warnf("获取robots.txt失败 [%s], 进入fail-open状态: %v", robotsURL, err)
		return p
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		utils.Warnf("解析robots.txt失败 [%s], 进入fail-open状态: %v", robotsURL, err)
		return p
	}

	p.data = data
	utils.Debugf("robots.txt加载完成: %s", robotsURL)
	return p
}

// IsAllowed 判断URL是否允许抓取
// 禁用或fail-open状态恒为true,单次评估失败同样放行
func (p *RobotsPolicy) IsAllowed(link string) bool {
	if !p.enabled || p.data == nil {
		return true
	}

	parsed, err := url.Parse(link)
	if err != nil {
		// 解析失败时继续,与完整性优先的策略一致
		utils.Debugf("robots检查: URL解析失败, 放行: %s", link)
		return true
	}

	group := p.data.FindGroup(p.userAgent)
	if group == nil {
		group = p.data.FindGroup("*")
		if group == nil {
			return true
		}
	}

	allowed := group.Test(parsed.Path)
	if !allowed {
		utils.Debugf("robots.txt禁止抓取: %s", link)
	}
	return allowed
}
