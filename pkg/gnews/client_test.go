package gnews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/post_radar/pkg/search"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>"ai agents" - Google News</title>
<item>
  <title>Agent platforms see adoption surge - TechDaily</title>
  <link>https://news.google.com/rss/articles/abc</link>
  <pubDate>Wed, 01 May 2024 08:00:00 GMT</pubDate>
  <description>&lt;a href="https://news.google.com/rss/articles/abc"&gt;Agent platforms see adoption surge&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font color="#6f6f6f"&gt;TechDaily&lt;/font&gt;</description>
</item>
<item>
  <title>Second story - Wire</title>
  <link>https://news.google.com/rss/articles/def</link>
  <description>plain text</description>
</item>
<item>
  <title>Third story - Wire</title>
  <link>https://news.google.com/rss/articles/ghi</link>
</item>
</channel></rss>`

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ai agents latest news 2024", q.Get("q"))
		assert.Equal(t, "en-US", q.Get("hl"))
		assert.Equal(t, "US", q.Get("gl"))
		assert.Equal(t, "US:en", q.Get("ceid"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/rss/search", "", "", time.Second)
	resp, err := c.Search(context.Background(), &search.Request{Query: "ai agents latest news 2024", Topic: search.TopicNews, MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	first := resp.Results[0]
	assert.Equal(t, "Agent platforms see adoption surge", first.Title)
	assert.Equal(t, "TechDaily", first.Source)
	assert.Equal(t, "https://news.google.com/rss/articles/abc", first.URL)
	assert.Equal(t, "2024-05-01T08:00:00Z", first.PublishedDate)
	assert.Equal(t, "Agent platforms see adoption surge TechDaily", first.Content)

	assert.Equal(t, "plain text", resp.Results[1].Content)
	assert.Equal(t, "Wire", resp.Results[1].Source)
}

func TestClient_SearchGeneralUnsupported(t *testing.T) {
	_, err := NewClient("", "", "", 0).Search(context.Background(), &search.Request{Query: "q", Topic: search.TopicGeneral})
	assert.ErrorIs(t, err, search.ErrGeneralUnsupported)
}

func TestClient_SearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "", time.Second).Search(context.Background(), &search.Request{Query: "q", Topic: search.TopicNews})
	assert.Error(t, err)
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		in, headline, source string
	}{
		{"AI - the next wave - Reuters", "AI - the next wave", "Reuters"},
		{"No publisher", "No publisher", ""},
		{" - Leading dash", " - Leading dash", ""},
	}
	for _, tt := range tests {
		h, s := SplitTitle(tt.in)
		assert.Equal(t, tt.headline, h, tt.in)
		assert.Equal(t, tt.source, s, tt.in)
	}
}

func TestFlattenHTML(t *testing.T) {
	assert.Equal(t, "Hello world & more", FlattenHTML(`<p>Hello <b>world</b></p> &amp; more`))
	assert.Equal(t, "a & b", FlattenHTML("a &amp; b"))
	assert.Equal(t, "", FlattenHTML(""))
}
