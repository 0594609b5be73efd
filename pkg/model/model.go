package model

import "time"

// ResultKind 搜索结果类型
type ResultKind string

const (
	KindWebSearch ResultKind = "web_search"
	KindNews      ResultKind = "news"
)

// SearchResult 单条已评分的搜索结果
type SearchResult struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	URL       string     `json:"url"`
	Source    string     `json:"source,omitempty"`
	Date      string     `json:"date,omitempty"`
	Type      ResultKind `json:"type"`
	Relevance float64    `json:"relevance"`
}

// ResultSet 一组搜索结果及其数量
type ResultSet struct {
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

// NewResultSet 构造 ResultSet，nil 切片会被替换为空切片
func NewResultSet(results []SearchResult) ResultSet {
	if results == nil {
		results = []SearchResult{}
	}
	return ResultSet{Count: len(results), Results: results}
}

// ResearchReport 调研报告
type ResearchReport struct {
	Topic             string    `json:"topic"`
	SearchPerformedAt string    `json:"search_performed_at"`
	WebResults        ResultSet `json:"web_results"`
	NewsResults       ResultSet `json:"news_results"`
	KeyFindings       []string  `json:"key_findings"`
	TrendingKeywords  []string  `json:"trending_keywords"`
	Summary           string    `json:"summary"`
	Sources           []string  `json:"sources"`
}

// FallbackInsights 搜索不可用时的通用洞察
type FallbackInsights struct {
	GeneralInsights []string `json:"general_insights"`
	TrendingThemes  []string `json:"trending_themes"`
	Note            string   `json:"note"`
}

// FallbackReport 降级报告
type FallbackReport struct {
	Error            string           `json:"error"`
	Topic            string           `json:"topic"`
	FallbackInsights FallbackInsights `json:"fallback_insights"`
}

// Post LinkedIn 帖子草稿
type Post struct {
	Topic     string    `json:"topic"`
	Draft     string    `json:"draft"`
	Final     string    `json:"final"`
	Degraded  bool      `json:"degraded"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Run 一次持久化的调研记录
type Run struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Degraded  bool      `json:"degraded"`
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
