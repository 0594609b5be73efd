package research

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iWorld-y/post_radar/pkg/logger"
	"github.com/iWorld-y/post_radar/pkg/model"
	"github.com/iWorld-y/post_radar/pkg/search"
)

const (
	DefaultMaxResults       = 5
	DefaultWebQueryResults  = 10
	DefaultNewsQueryResults = 5
)

// ErrEmptyTopic 主题为空
var ErrEmptyTopic = errors.New("topic must not be empty")

// Options 调研参数
type Options struct {
	WebQueryResults  int           // 每个网页查询请求的条数
	NewsQueryResults int           // 新闻查询请求的条数
	QueryTimeout     time.Duration // 单次查询超时，0 表示只受调用方 ctx 约束
	ReferenceYear    int           // 查询语句与加分年份的基准，0 表示当前年份
	Now              func() time.Time
}

// Researcher 调研聚合器：并发执行网页、专家观点、新闻三个查询，评分排序后汇总成报告
type Researcher struct {
	searcher search.Searcher
	opts     Options
}

// New 创建调研聚合器
func New(searcher search.Searcher, opts Options) *Researcher {
	if opts.WebQueryResults <= 0 {
		opts.WebQueryResults = DefaultWebQueryResults
	}
	if opts.NewsQueryResults <= 0 {
		opts.NewsQueryResults = DefaultNewsQueryResults
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Researcher{searcher: searcher, opts: opts}
}

// Research 调研一个主题。永远不会返回错误：搜索失败的查询视为空结果，汇总阶段出错时返回降级报告
func (r *Researcher) Research(ctx context.Context, topic string, maxResults int) (out Outcome) {
	if strings.TrimSpace(topic) == "" {
		return degraded(Fallback(topic, ErrEmptyTopic))
	}
	if maxResults < 1 {
		maxResults = DefaultMaxResults
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorf("调研汇总失败 [%s]: %v", topic, p)
			out = degraded(Fallback(topic, fmt.Errorf("%v", p)))
		}
	}()

	year := r.opts.ReferenceYear
	if year == 0 {
		year = r.opts.Now().Year()
	}

	var general, expert, news []search.Result
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		general = r.query(ctx, fmt.Sprintf("%s trends %d", topic, year), search.TopicGeneral, r.opts.WebQueryResults)
	}()
	go func() {
		defer wg.Done()
		expert = r.query(ctx, fmt.Sprintf("%s expert analysis insights", topic), search.TopicGeneral, r.opts.WebQueryResults)
	}()
	go func() {
		defer wg.Done()
		news = r.query(ctx, fmt.Sprintf("%s latest news %d", topic, year), search.TopicNews, r.opts.NewsQueryResults)
	}()
	wg.Wait()

	bonus := BonusKeywords(year)

	web := make([]model.SearchResult, 0, len(general)+len(expert))
	for _, hits := range [][]search.Result{general, expert} {
		for _, hit := range hits {
			web = append(web, score(hit, model.KindWebSearch, topic, bonus))
		}
	}
	sort.SliceStable(web, func(i, j int) bool {
		return web[i].Relevance > web[j].Relevance
	})
	if len(web) > maxResults {
		web = web[:maxResults]
	}

	newsResults := make([]model.SearchResult, 0, len(news))
	for _, hit := range news {
		newsResults = append(newsResults, score(hit, model.KindNews, topic, bonus))
	}

	all := make([]model.SearchResult, 0, len(web)+len(newsResults))
	all = append(all, web...)
	all = append(all, newsResults...)

	report := &model.ResearchReport{
		Topic:             topic,
		SearchPerformedAt: r.opts.Now().Format(time.RFC3339),
		WebResults:        model.NewResultSet(web),
		NewsResults:       model.NewResultSet(newsResults),
		KeyFindings:       KeyFindings(all, topic),
		TrendingKeywords:  TrendingKeywords(all),
		Summary:           Summarize(web, newsResults, topic),
		Sources:           UniqueSources(all),
	}
	logger.Log.Infof("调研完成 [%s]: 网页 %d 条, 新闻 %d 条, 关键发现 %d 条",
		topic, report.WebResults.Count, report.NewsResults.Count, len(report.KeyFindings))
	return succeeded(report)
}

// query 执行单个查询，任何失败（错误、超时、panic）都只记录日志并返回空结果
func (r *Researcher) query(ctx context.Context, q, topic string, maxResults int) (results []search.Result) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorf("搜索后端异常 [%s]: %v", q, p)
			results = nil
		}
	}()

	if r.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.QueryTimeout)
		defer cancel()
	}

	resp, err := r.searcher.Search(ctx, &search.Request{Query: q, Topic: topic, MaxResults: maxResults})
	if err != nil {
		logger.Log.Warnf("搜索失败 [%s] (%s): %v", q, topic, err)
		return nil
	}
	if resp == nil {
		return nil
	}
	logger.Log.Debugf("搜索成功 [%s] (%s): %d 条", q, topic, len(resp.Results))
	return resp.Results
}

func score(hit search.Result, kind model.ResultKind, topic string, bonus []string) model.SearchResult {
	res := model.SearchResult{
		Title:     hit.Title,
		Content:   hit.Content,
		URL:       hit.URL,
		Type:      kind,
		Relevance: Relevance(hit.Content, topic, bonus),
	}
	if kind == model.KindNews {
		res.Source = hit.Source
		res.Date = hit.PublishedDate
	}
	return res
}
