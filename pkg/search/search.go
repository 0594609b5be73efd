package search

import (
	"context"
	"errors"
)

const (
	TopicGeneral = "general"
	TopicNews    = "news"
)

var (
	// ErrNewsUnsupported 后端不支持新闻搜索
	ErrNewsUnsupported = errors.New("search: news search not supported by backend")
	// ErrGeneralUnsupported 后端只支持新闻搜索
	ErrGeneralUnsupported = errors.New("search: general search not supported by backend")
)

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Topic             string // "news" or "general"
	MaxResults        int
	IncludeRawContent bool
	StartDate         string // Format: YYYY-MM-DD
	EndDate           string // Format: YYYY-MM-DD
}

// IsNews 是否为新闻搜索
func (r *Request) IsNews() bool {
	return r.Topic == TopicNews
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
	Source        string // 新闻来源，网页搜索通常为空
}
