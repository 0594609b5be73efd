package storage

import (
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/post_radar/pkg/model"
	"github.com/iWorld-y/post_radar/pkg/research"
)

// SanitizeText 移除无效的 UTF-8 字符与 NULL 字节，PostgreSQL 文本和 JSONB 都不接受它们
func SanitizeText(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i := 0; i < len(s); {
			r, size := utf8.DecodeRuneInString(s[i:])
			i += size
			if r == utf8.RuneError && size == 1 {
				continue
			}
			v = append(v, r)
		}
		s = string(v)
	}
	return removeNullBytes(s)
}

func removeNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

func sanitizeAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = SanitizeText(s)
	}
	return out
}

func sanitizeResults(set model.ResultSet) model.ResultSet {
	results := make([]model.SearchResult, len(set.Results))
	for i, r := range set.Results {
		r.Title = SanitizeText(r.Title)
		r.Content = SanitizeText(r.Content)
		r.URL = SanitizeText(r.URL)
		r.Source = SanitizeText(r.Source)
		r.Date = SanitizeText(r.Date)
		results[i] = r
	}
	return model.NewResultSet(results)
}

// SanitizeOutcome 返回清洗后的副本，不修改原结果
func SanitizeOutcome(out research.Outcome) research.Outcome {
	var clean research.Outcome
	if r := out.Report; r != nil {
		clean.Report = &model.ResearchReport{
			Topic:             SanitizeText(r.Topic),
			SearchPerformedAt: r.SearchPerformedAt,
			WebResults:        sanitizeResults(r.WebResults),
			NewsResults:       sanitizeResults(r.NewsResults),
			KeyFindings:       sanitizeAll(r.KeyFindings),
			TrendingKeywords:  sanitizeAll(r.TrendingKeywords),
			Summary:           SanitizeText(r.Summary),
			Sources:           sanitizeAll(r.Sources),
		}
	}
	if f := out.Fallback; f != nil {
		clean.Fallback = &model.FallbackReport{
			Error: SanitizeText(f.Error),
			Topic: SanitizeText(f.Topic),
			FallbackInsights: model.FallbackInsights{
				GeneralInsights: sanitizeAll(f.FallbackInsights.GeneralInsights),
				TrendingThemes:  sanitizeAll(f.FallbackInsights.TrendingThemes),
				Note:            SanitizeText(f.FallbackInsights.Note),
			},
		}
	}
	return clean
}
