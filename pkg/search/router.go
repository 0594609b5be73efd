package search

import "context"

// Router 按 Request.Topic 把请求分发到网页搜索或新闻搜索后端
type Router struct {
	General Searcher
	News    Searcher
}

var _ Searcher = (*Router)(nil)

// NewRouter 创建路由；news 为 nil 时新闻请求也走 general
func NewRouter(general, news Searcher) *Router {
	if news == nil {
		news = general
	}
	return &Router{General: general, News: news}
}

// Search implements Searcher
func (r *Router) Search(ctx context.Context, req *Request) (*Response, error) {
	if req.IsNews() {
		return r.News.Search(ctx, req)
	}
	return r.General.Search(ctx, req)
}
