package research

import (
	"encoding/json"
	"fmt"

	"github.com/iWorld-y/post_radar/pkg/model"
)

// TrendingThemes 降级报告中固定的趋势主题
var TrendingThemes = []string{"innovation", "growth", "adoption", "technology", "market"}

const fallbackNote = "These are general insights due to search limitations. For accurate information, please verify with current sources."

// Outcome 一次调研的结果：Report 与 Fallback 有且只有一个非空
type Outcome struct {
	Report   *model.ResearchReport
	Fallback *model.FallbackReport
}

func succeeded(r *model.ResearchReport) Outcome {
	return Outcome{Report: r}
}

func degraded(f *model.FallbackReport) Outcome {
	return Outcome{Fallback: f}
}

// Degraded 是否为降级结果
func (o Outcome) Degraded() bool {
	return o.Fallback != nil
}

// Topic 调研主题
func (o Outcome) Topic() string {
	if o.Fallback != nil {
		return o.Fallback.Topic
	}
	if o.Report != nil {
		return o.Report.Topic
	}
	return ""
}

// MarshalJSON 输出报告或降级报告本身
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch {
	case o.Fallback != nil:
		return json.Marshal(o.Fallback)
	case o.Report != nil:
		return json.Marshal(o.Report)
	default:
		return nil, fmt.Errorf("research: empty outcome")
	}
}

// Fallback 生成降级报告
func Fallback(topic string, err error) *model.FallbackReport {
	return &model.FallbackReport{
		Error: fmt.Sprintf("Web search failed: %v", err),
		Topic: topic,
		FallbackInsights: model.FallbackInsights{
			GeneralInsights: []string{
				fmt.Sprintf("%s is an emerging field with significant potential", topic),
				fmt.Sprintf("Industry adoption of %s is accelerating", topic),
				fmt.Sprintf("Key players are investing heavily in %s development", topic),
			},
			TrendingThemes: append([]string(nil), TrendingThemes...),
			Note:           fallbackNote,
		},
	}
}
