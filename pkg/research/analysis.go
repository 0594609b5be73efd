package research

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iWorld-y/post_radar/pkg/model"
)

const (
	maxFindingResults = 8
	maxFindings       = 6
	minFindingLength  = 30
	maxKeywords       = 10
	minKeywordLength  = 4
	maxSources        = 10
	keywordTrimChars  = ".,!?()[]{}\"'-"
)

var signalKeywords = []string{"trend", "growth", "increase", "statistics", "data", "report"}

var findingKeywords = []string{"trend", "growth", "increase", "innovation", "market", "adoption"}

var keywordStopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "have": {}, "been": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "there": {}, "their": {}, "where": {},
}

// BonusKeywords 相关性加分词：参考年份前后三年加上趋势/数据类词汇
func BonusKeywords(year int) []string {
	words := []string{strconv.Itoa(year + 1), strconv.Itoa(year), strconv.Itoa(year - 1)}
	return append(words, signalKeywords...)
}

// Relevance 计算摘要与主题的相关性：每个命中的主题词 +1.0，每个命中的加分词 +0.5
func Relevance(content, topic string, bonus []string) float64 {
	if content == "" {
		return 0.0
	}

	contentLower := strings.ToLower(content)
	score := 0.0
	for _, word := range strings.Fields(strings.ToLower(topic)) {
		if strings.Contains(contentLower, word) {
			score += 1.0
		}
	}
	for _, kw := range bonus {
		if strings.Contains(contentLower, kw) {
			score += 0.5
		}
	}
	return score
}

// KeyFindings 从前 8 条结果中按 ". " 分句，挑出包含主题或趋势词的长句，最多 6 条且不重复
func KeyFindings(results []model.SearchResult, topic string) []string {
	findings := make([]string, 0, maxFindings)
	seen := make(map[string]struct{}, maxFindings)
	topicLower := strings.ToLower(topic)

	if len(results) > maxFindingResults {
		results = results[:maxFindingResults]
	}
	for _, r := range results {
		for _, sentence := range strings.Split(r.Content, ". ") {
			if utf8.RuneCountInString(sentence) <= minFindingLength || !mentions(sentence, topicLower) {
				continue
			}
			clean := strings.TrimRight(strings.TrimSpace(sentence), ".")
			if _, dup := seen[clean]; dup {
				continue
			}
			seen[clean] = struct{}{}
			findings = append(findings, clean)
			if len(findings) >= maxFindings {
				return findings
			}
		}
	}
	return findings
}

func mentions(sentence, topicLower string) bool {
	lower := strings.ToLower(sentence)
	if strings.Contains(lower, topicLower) {
		return true
	}
	for _, kw := range findingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TrendingKeywords 统计标题与摘要中的高频词，按频次降序返回前 10 个，同频保持首次出现顺序
func TrendingKeywords(results []model.SearchResult) []string {
	counts := make(map[string]int)
	var order []string

	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Content)
		for _, word := range strings.Fields(text) {
			word = strings.Trim(word, keywordTrimChars)
			if !isKeyword(word) {
				continue
			}
			if _, ok := counts[word]; !ok {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

func isKeyword(word string) bool {
	if utf8.RuneCountInString(word) <= minKeywordLength {
		return false
	}
	if _, stop := keywordStopwords[word]; stop {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// UniqueSources 提取结果 URL 的域名并去重，保持首次出现顺序，最多 10 个。URL 无法解析时使用原始字符串
func UniqueSources(results []model.SearchResult) []string {
	sources := make([]string, 0, maxSources)
	seen := make(map[string]struct{})

	for _, r := range results {
		if r.URL == "" {
			continue
		}
		domain := r.URL
		if u, err := url.Parse(r.URL); err == nil {
			domain = u.Host
		}
		if domain == "" {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		sources = append(sources, domain)
		if len(sources) >= maxSources {
			break
		}
	}
	return sources
}

// Summarize 生成固定模板的调研摘要
func Summarize(web, news []model.SearchResult, topic string) string {
	parts := []string{fmt.Sprintf("Research Summary for '%s':\n", topic)}

	if len(web) > 0 {
		parts = append(parts, fmt.Sprintf("• Found %d relevant web sources with insights on %s", len(web), topic))
	}
	if len(news) > 0 {
		parts = append(parts, fmt.Sprintf("• Discovered %d recent news articles covering latest developments", len(news)))
	}

	contents := make([]string, 0, len(web)+len(news))
	for _, r := range web {
		contents = append(contents, r.Content)
	}
	for _, r := range news {
		contents = append(contents, r.Content)
	}
	all := strings.ToLower(strings.Join(contents, " "))

	if strings.Contains(all, "growth") {
		parts = append(parts, "• Market growth and expansion trends identified")
	}
	if strings.Contains(all, "innovation") {
		parts = append(parts, "• Innovation and technological advancements noted")
	}
	if strings.Contains(all, "adoption") {
		parts = append(parts, "• Adoption patterns and user engagement insights found")
	}

	parts = append(parts, fmt.Sprintf("\nThe research indicates %s is an active area with substantial industry interest and ongoing developments.", topic))
	return strings.Join(parts, "\n")
}
