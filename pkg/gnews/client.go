package gnews

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/iWorld-y/post_radar/pkg/search"
)

// DefaultBaseURL Google News RSS 搜索入口
const DefaultBaseURL = "https://news.google.com/rss/search"

// Client Google News RSS 客户端，只支持新闻搜索
type Client struct {
	baseURL  string
	language string // hl, 例如 en-US
	country  string // gl, 例如 US
	client   *http.Client
}

// NewClient 创建客户端，空参数使用默认值
func NewClient(baseURL, language, country string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = "en-US"
	}
	if country == "" {
		country = "US"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		language: language,
		country:  country,
		client:   &http.Client{Timeout: timeout},
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if !req.IsNews() {
		return nil, search.ErrGeneralUnsupported
	}

	feedURL, err := c.feedURL(req.Query)
	if err != nil {
		return nil, err
	}

	fp := gofeed.NewParser()
	fp.Client = c.client
	fp.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 post_radar/0.1"

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("google news rss: %w", err)
	}

	results := make([]search.Result, 0, len(feed.Items))
	for _, item := range feed.Items {
		if req.MaxResults > 0 && len(results) >= req.MaxResults {
			break
		}
		results = append(results, toResult(item))
	}
	return &search.Response{Results: results}, nil
}

func (c *Client) feedURL(query string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	lang := c.language
	if i := strings.Index(lang, "-"); i > 0 {
		lang = lang[:i]
	}

	q := u.Query()
	q.Set("q", query)
	q.Set("hl", c.language)
	q.Set("gl", c.country)
	q.Set("ceid", c.country+":"+lang)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func toResult(item *gofeed.Item) search.Result {
	title, source := SplitTitle(strings.TrimSpace(item.Title))

	date := item.Published
	if item.PublishedParsed != nil {
		date = item.PublishedParsed.UTC().Format(time.RFC3339)
	}

	return search.Result{
		Title:         title,
		URL:           strings.TrimSpace(item.Link),
		Content:       FlattenHTML(item.Description),
		PublishedDate: date,
		Source:        source,
	}
}

// SplitTitle 拆分 Google News 的 "标题 - 媒体" 形式
func SplitTitle(title string) (headline, source string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}

// FlattenHTML 将 RSS description 中的 HTML 片段转换为纯文本
func FlattenHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(html.UnescapeString(fragment)), " ")
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(sb.String()), " ")
}
