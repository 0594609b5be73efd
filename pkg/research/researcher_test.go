package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iWorld-y/post_radar/pkg/model"
	"github.com/iWorld-y/post_radar/pkg/search"
)

// fakeSearcher 按查询语句返回预设结果，未配置的查询返回错误
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]search.Result
	errs     map[string]error
	requests []search.Request
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{results: map[string][]search.Result{}, errs: map[string]error{}}
}

func (f *fakeSearcher) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, *req)

	if err, ok := f.errs[req.Query]; ok {
		return nil, err
	}
	results, ok := f.results[req.Query]
	if !ok {
		return nil, fmt.Errorf("no fixture for %q", req.Query)
	}
	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}
	return &search.Response{Results: results}, nil
}

func (f *fakeSearcher) request(query string) (search.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Query == query {
			return r, true
		}
	}
	return search.Request{}, false
}

var fixedNow = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }

func newTestResearcher(s search.Searcher) *Researcher {
	return New(s, Options{Now: fixedNow})
}

func TestResearch_IssuesThreeQueries(t *testing.T) {
	s := newFakeSearcher()
	New(s, Options{Now: fixedNow}).Research(context.Background(), "edge AI", 5)

	general, ok := s.request("edge AI trends 2024")
	require.True(t, ok)
	assert.Equal(t, search.TopicGeneral, general.Topic)
	assert.Equal(t, 10, general.MaxResults)

	expert, ok := s.request("edge AI expert analysis insights")
	require.True(t, ok)
	assert.Equal(t, search.TopicGeneral, expert.Topic)
	assert.Equal(t, 10, expert.MaxResults)

	news, ok := s.request("edge AI latest news 2024")
	require.True(t, ok)
	assert.Equal(t, search.TopicNews, news.Topic)
	assert.Equal(t, 5, news.MaxResults)
}

func TestResearch_ReferenceYearOverridesClock(t *testing.T) {
	s := newFakeSearcher()
	New(s, Options{Now: fixedNow, ReferenceYear: 2026}).Research(context.Background(), "edge AI", 5)

	_, ok := s.request("edge AI trends 2026")
	assert.True(t, ok)
	_, ok = s.request("edge AI latest news 2026")
	assert.True(t, ok)
}

func TestResearch_ScoresAndSortsWebResults(t *testing.T) {
	topic := "multi-agent AI systems"
	s := newFakeSearcher()
	s.results[topic+" trends 2024"] = []search.Result{
		{Title: "Gardening", Content: "unrelated gardening tips", URL: "https://garden.example.com/tips"},
		{Title: "AI", Content: "AI systems trend in 2024", URL: "https://ai.example.com/trend"},
	}
	s.errs[topic+" expert analysis insights"] = errors.New("rate limited")
	s.results[topic+" latest news 2024"] = nil

	out := newTestResearcher(s).Research(context.Background(), topic, 5)
	require.False(t, out.Degraded())
	report := out.Report

	require.Equal(t, 2, report.WebResults.Count)
	first, second := report.WebResults.Results[0], report.WebResults.Results[1]
	assert.Equal(t, "AI", first.Title)
	assert.GreaterOrEqual(t, first.Relevance, 1.5)
	assert.Equal(t, 3.0, first.Relevance)
	assert.Equal(t, 0.0, second.Relevance)
	assert.Equal(t, model.KindWebSearch, first.Type)
	assert.Equal(t, 0, report.NewsResults.Count)
	assert.Equal(t, []string{"ai.example.com", "garden.example.com"}, report.Sources)
	assert.Equal(t, "2024-06-01T09:00:00Z", report.SearchPerformedAt)
}

func TestResearch_TruncatesWebResultsStably(t *testing.T) {
	topic := "robotics"
	s := newFakeSearcher()
	var general, expert []search.Result
	for i := 0; i < 10; i++ {
		general = append(general, search.Result{Title: fmt.Sprintf("g%d", i), Content: "robotics news"})
		expert = append(expert, search.Result{Title: fmt.Sprintf("e%d", i), Content: "robotics news"})
	}
	expert[7].Content = "robotics growth data"
	s.results[topic+" trends 2024"] = general
	s.results[topic+" expert analysis insights"] = expert
	s.results[topic+" latest news 2024"] = nil

	report := newTestResearcher(s).Research(context.Background(), topic, 3).Report
	require.NotNil(t, report)
	require.Equal(t, 3, report.WebResults.Count)

	var titles []string
	for _, r := range report.WebResults.Results {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"e7", "g0", "g1"}, titles)
}

func TestResearch_NewsResults(t *testing.T) {
	topic := "fintech"
	s := newFakeSearcher()
	s.results[topic+" trends 2024"] = nil
	s.results[topic+" expert analysis insights"] = nil
	var news []search.Result
	for i := 0; i < 8; i++ {
		news = append(news, search.Result{
			Title:         fmt.Sprintf("n%d", i),
			Content:       "Fintech adoption climbs",
			URL:           fmt.Sprintf("https://news%d.example.com/a", i),
			Source:        "Wire",
			PublishedDate: "2024-05-30",
		})
	}
	s.results[topic+" latest news 2024"] = news

	report := newTestResearcher(s).Research(context.Background(), topic, 1).Report
	require.NotNil(t, report)
	require.Equal(t, 5, report.NewsResults.Count)
	n := report.NewsResults.Results[0]
	assert.Equal(t, model.KindNews, n.Type)
	assert.Equal(t, "Wire", n.Source)
	assert.Equal(t, "2024-05-30", n.Date)
	assert.Equal(t, 1.0, n.Relevance)
	assert.Contains(t, report.Summary, "• Discovered 5 recent news articles covering latest developments")
	assert.Contains(t, report.Summary, "• Adoption patterns and user engagement insights found")
}

func TestResearch_AllBackendsFail(t *testing.T) {
	s := search.SearcherFunc(func(ctx context.Context, req *search.Request) (*search.Response, error) {
		return nil, errors.New("backend unreachable")
	})

	out := newTestResearcher(s).Research(context.Background(), "edge AI", 5)
	require.False(t, out.Degraded())
	report := out.Report

	assert.Equal(t, 0, report.WebResults.Count)
	assert.Equal(t, 0, report.NewsResults.Count)
	assert.Empty(t, report.KeyFindings)
	assert.Empty(t, report.TrendingKeywords)
	assert.Empty(t, report.Sources)
	assert.NotContains(t, report.Summary, "•")
	assert.True(t, strings.HasPrefix(report.Summary, "Research Summary for 'edge AI':"))
	assert.True(t, strings.HasSuffix(report.Summary, "ongoing developments."))

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key_findings":[]`)
	assert.Contains(t, string(data), `"web_results":{"count":0,"results":[]}`)
	assert.Contains(t, string(data), `"sources":[]`)
}

func TestResearch_BackendPanicIsAbsorbed(t *testing.T) {
	s := search.SearcherFunc(func(ctx context.Context, req *search.Request) (*search.Response, error) {
		if req.IsNews() {
			panic("news backend exploded")
		}
		return &search.Response{Results: []search.Result{{Title: "t", Content: "edge AI growth", URL: "https://a.example.com"}}}, nil
	})

	out := newTestResearcher(s).Research(context.Background(), "edge AI", 5)
	require.False(t, out.Degraded())
	assert.Equal(t, 2, out.Report.WebResults.Count)
	assert.Equal(t, 0, out.Report.NewsResults.Count)
}

func TestResearch_AssemblyFailureReturnsFallback(t *testing.T) {
	s := newFakeSearcher()
	r := New(s, Options{
		ReferenceYear: 2024,
		Now:           func() time.Time { panic("clock exploded") },
	})

	out := r.Research(context.Background(), "edge AI", 5)
	require.True(t, out.Degraded())
	assert.Nil(t, out.Report)

	fb := out.Fallback
	assert.Equal(t, "edge AI", fb.Topic)
	assert.Equal(t, "Web search failed: clock exploded", fb.Error)
	assert.Equal(t, []string{"innovation", "growth", "adoption", "technology", "market"}, fb.FallbackInsights.TrendingThemes)
	assert.Equal(t, []string{
		"edge AI is an emerging field with significant potential",
		"Industry adoption of edge AI is accelerating",
		"Key players are investing heavily in edge AI development",
	}, fb.FallbackInsights.GeneralInsights)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "error")
	assert.Contains(t, decoded, "fallback_insights")
	assert.NotContains(t, decoded, "web_results")
}

func TestResearch_EmptyTopic(t *testing.T) {
	out := newTestResearcher(newFakeSearcher()).Research(context.Background(), "   ", 5)
	require.True(t, out.Degraded())
	assert.Contains(t, out.Fallback.Error, ErrEmptyTopic.Error())
}

func TestResearch_DefaultMaxResults(t *testing.T) {
	topic := "chips"
	s := newFakeSearcher()
	var hits []search.Result
	for i := 0; i < 10; i++ {
		hits = append(hits, search.Result{Title: fmt.Sprintf("h%d", i), Content: "chips"})
	}
	s.results[topic+" trends 2024"] = hits
	s.results[topic+" expert analysis insights"] = hits
	s.results[topic+" latest news 2024"] = nil

	report := newTestResearcher(s).Research(context.Background(), topic, 0).Report
	require.NotNil(t, report)
	assert.Equal(t, DefaultMaxResults, report.WebResults.Count)
}

func TestResearch_QueryTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := search.SearcherFunc(func(ctx context.Context, req *search.Request) (*search.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	out := New(slow, Options{Now: fixedNow, QueryTimeout: 20 * time.Millisecond}).Research(context.Background(), "edge AI", 5)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.False(t, out.Degraded())
	assert.Equal(t, 0, out.Report.WebResults.Count)
	assert.Equal(t, 0, out.Report.NewsResults.Count)
}

func TestResearch_Idempotent(t *testing.T) {
	topic := "edge AI"
	s := newFakeSearcher()
	s.results[topic+" trends 2024"] = []search.Result{
		{Title: "Edge AI chips", Content: "Edge AI market growth accelerates as vendors ship new silicon. Adoption in factories rises", URL: "https://a.example.com/1"},
		{Title: "Edge inference", Content: "Inference at the edge cuts latency", URL: "https://b.example.com/2"},
	}
	s.results[topic+" expert analysis insights"] = []search.Result{
		{Title: "Analyst view", Content: "Experts see innovation in edge AI tooling", URL: "https://c.example.com/3"},
	}
	s.results[topic+" latest news 2024"] = []search.Result{
		{Title: "News", Content: "Edge AI startup raises funding", URL: "https://d.example.com/4", Source: "Wire"},
	}

	clock := fixedNow()
	r := New(s, Options{ReferenceYear: 2024, Now: func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}})

	first := r.Research(context.Background(), topic, 5)
	second := r.Research(context.Background(), topic, 5)
	require.False(t, first.Degraded())
	require.False(t, second.Degraded())
	assert.NotEqual(t, first.Report.SearchPerformedAt, second.Report.SearchPerformedAt)

	diff := cmp.Diff(first.Report, second.Report, cmpopts.IgnoreFields(model.ResearchReport{}, "SearchPerformedAt"))
	assert.Empty(t, diff)

	second.Report.SearchPerformedAt = first.Report.SearchPerformedAt
	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestOutcome(t *testing.T) {
	_, err := json.Marshal(Outcome{})
	assert.Error(t, err)

	out := degraded(Fallback("x", errors.New("boom")))
	assert.True(t, out.Degraded())
	assert.Equal(t, "x", out.Topic())
	assert.Equal(t, "Web search failed: boom", out.Fallback.Error)
	assert.NotEmpty(t, out.Fallback.FallbackInsights.Note)

	ok := succeeded(&model.ResearchReport{Topic: "y"})
	assert.False(t, ok.Degraded())
	assert.Equal(t, "y", ok.Topic())
}
