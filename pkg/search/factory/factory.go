package factory

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/post_radar/pkg/config"
	"github.com/iWorld-y/post_radar/pkg/duckduckgo"
	"github.com/iWorld-y/post_radar/pkg/gnews"
	"github.com/iWorld-y/post_radar/pkg/search"
	"github.com/iWorld-y/post_radar/pkg/searxng"
	"github.com/iWorld-y/post_radar/pkg/tavily"
)

// NewSearcher 根据配置创建搜索实例：网页/新闻后端路由，外层依次包装重试与限流
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	general, err := NewProvider(cfg, cfg.Search.Provider)
	if err != nil {
		return nil, err
	}

	var s search.Searcher = general
	if np := cfg.Search.NewsProvider; np != "" && np != cfg.Search.Provider {
		news, err := NewProvider(cfg, np)
		if err != nil {
			return nil, err
		}
		s = search.NewRouter(general, news)
	}

	s = search.WithRetry(s, cfg.Search.MaxRetries, cfg.RetryBackoff())
	s = search.WithRateLimit(s, NewLimiter(cfg.Concurrency))
	return s, nil
}

// NewProvider 创建单个搜索后端
func NewProvider(cfg *config.Config, provider string) (search.Searcher, error) {
	timeout := cfg.QueryTimeout()

	switch provider {
	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, &config.Error{Field: "search.tavily.api_key", Reason: "tavily api key is missing"}
		}
		return tavily.NewClient(cfg.Search.Tavily.APIKey, tavily.WithTimeout(timeout)), nil

	case "searxng":
		if cfg.Search.SearXNG.BaseURL == "" {
			return nil, &config.Error{Field: "search.searxng.base_url", Reason: "searxng base url is missing"}
		}
		return searxng.NewClient(cfg.Search.SearXNG.BaseURL, cfg.Search.SearXNG.Timeout), nil

	case "duckduckgo":
		return duckduckgo.NewClient(cfg.Search.DuckDuckGo.BaseURL, timeout), nil

	case "gnews":
		g := cfg.Search.GNews
		return gnews.NewClient(g.BaseURL, g.Language, g.Country, timeout), nil

	default:
		return nil, &config.Error{Field: "search.provider", Reason: fmt.Sprintf("unknown search provider: %s", provider)}
	}
}

// NewLimiter Limit 设置为 RPM/60，Burst 设置为 QPS
func NewLimiter(c config.ConcurrencyConfig) *rate.Limiter {
	if c.RPM <= 0 {
		return nil
	}
	burst := c.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.RPM)), burst)
}
