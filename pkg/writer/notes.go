package writer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/post_radar/pkg/research"
)

const fetchTimeout = 30 * time.Second

const writerSystemPrompt = `You are a LinkedIn content writer. You turn research into engaging, authentic LinkedIn posts
that sound like a real professional sharing experience, not like marketing copy.`

const writerPromptTpl = `Write a LinkedIn post for this request:
%s

The current year is %d.

Guidelines:
- Open with a strong hook in the first two lines.
- Use short paragraphs and a personal, first-person voice.
- Weave in concrete facts from the research notes where they fit; never invent statistics.
- End with a question that invites comments, followed by 3-5 relevant hashtags.
- Keep it under 1300 characters.
- Output only the post in Markdown.

Research notes:
%s`

const editorSystemPrompt = `You are a LinkedIn editor. You polish drafts for clarity, flow and engagement
while keeping the author's voice and every factual claim intact.`

const editorPromptTpl = `Edit the following LinkedIn post draft written for this request:
%s

Fix grammar, tighten wording, improve the hook and readability, and make sure the hashtags are relevant.
Do not add new facts. Output only the final post in Markdown.

Draft:
%s`

// Excerpt 抓取到的网页正文摘录
type Excerpt struct {
	Title string
	URL   string
	Text  string
}

// ResearchNotes 把调研结果整理成给模型的文字材料
func ResearchNotes(outcome research.Outcome, excerpts []Excerpt) string {
	var sb strings.Builder

	if fb := outcome.Fallback; fb != nil {
		sb.WriteString("Live search was unavailable. General insights:\n")
		for _, s := range fb.FallbackInsights.GeneralInsights {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		fmt.Fprintf(&sb, "Trending themes: %s\n", strings.Join(fb.FallbackInsights.TrendingThemes, ", "))
		fmt.Fprintf(&sb, "Note: %s\n", fb.FallbackInsights.Note)
		return sb.String()
	}

	report := outcome.Report
	if report == nil {
		return ""
	}
	sb.WriteString(report.Summary)
	sb.WriteString("\n\n")

	if len(report.KeyFindings) > 0 {
		sb.WriteString("Key findings:\n")
		for _, f := range report.KeyFindings {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
	}
	if len(report.TrendingKeywords) > 0 {
		fmt.Fprintf(&sb, "Trending keywords: %s\n\n", strings.Join(report.TrendingKeywords, ", "))
	}

	if report.WebResults.Count > 0 {
		sb.WriteString("Top web results:\n")
		for i, r := range report.WebResults.Results {
			fmt.Fprintf(&sb, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.URL, r.Content)
		}
		sb.WriteString("\n")
	}
	if report.NewsResults.Count > 0 {
		sb.WriteString("Recent news:\n")
		for i, r := range report.NewsResults.Results {
			fmt.Fprintf(&sb, "%d. %s", i+1, r.Title)
			if r.Source != "" {
				fmt.Fprintf(&sb, " - %s", r.Source)
			}
			if r.Date != "" {
				fmt.Fprintf(&sb, " [%s]", r.Date)
			}
			fmt.Fprintf(&sb, "\n   %s\n", r.Content)
		}
		sb.WriteString("\n")
	}

	for _, e := range excerpts {
		fmt.Fprintf(&sb, "Article excerpt: %s (%s)\n%s\n\n", e.Title, e.URL, e.Text)
	}
	if len(report.Sources) > 0 {
		fmt.Fprintf(&sb, "Sources: %s\n", strings.Join(report.Sources, ", "))
	}
	return sb.String()
}

// FetchReadable 下载网页并用 readability 提取正文
func FetchReadable(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; post_radar/1.0)")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, res.StatusCode)
	}

	article, err := readability.FromReader(res.Body, u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return article.TextContent, nil
}
