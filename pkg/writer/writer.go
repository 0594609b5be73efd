package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/post_radar/pkg/config"
	"github.com/iWorld-y/post_radar/pkg/logger"
	dm "github.com/iWorld-y/post_radar/pkg/model"
	"github.com/iWorld-y/post_radar/pkg/research"
)

const (
	maxModelRetries  = 3
	defaultBaseDelay = 2 * time.Second
	fetchConcurrency = 3
	maxExcerptBytes  = 3000
)

// ErrEmptyPrompt 帖子需求为空
var ErrEmptyPrompt = errors.New("writer: prompt must not be empty")

// Researcher 调研接口，*research.Researcher 实现了该接口
type Researcher interface {
	Research(ctx context.Context, topic string, maxResults int) research.Outcome
}

// Fetcher 抓取网页正文
type Fetcher func(ctx context.Context, url string) (string, error)

// Options 流水线参数
type Options struct {
	FetchTop  int           // 抓取正文的网页结果数量，0 表示不抓取
	Limiter   *rate.Limiter // 所有模型调用共享的限流器，nil 表示不限流
	Fetch     Fetcher       // 默认使用 readability
	BaseDelay time.Duration // 429 重试的基础间隔
	Now       func() time.Time
}

// Pipeline 帖子生成流水线：调研 -> 正文补充 -> 撰写 -> 润色
type Pipeline struct {
	researcher Researcher
	chatModel  model.BaseChatModel
	opts       Options
}

// NewChatModel 根据配置初始化 OpenAI 兼容的对话模型
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return cm, nil
}

// New 创建帖子生成流水线
func New(researcher Researcher, chatModel model.BaseChatModel, opts Options) *Pipeline {
	if opts.Fetch == nil {
		opts.Fetch = FetchReadable
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{researcher: researcher, chatModel: chatModel, opts: opts}
}

// Run 根据需求生成一篇 LinkedIn 帖子。调研降级时仍会继续生成，帖子标记为 Degraded
func (p *Pipeline) Run(ctx context.Context, prompt string, maxResults int) (*dm.Post, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	logger.Log.Infof("开始生成帖子: %s", prompt)

	outcome := p.researcher.Research(ctx, prompt, maxResults)
	if outcome.Degraded() {
		logger.Log.Warnf("调研降级，使用通用洞察继续: %s", outcome.Fallback.Error)
	}

	excerpts := p.enrich(ctx, outcome)
	notes := ResearchNotes(outcome, excerpts)
	now := p.opts.Now()

	draft, err := p.generate(ctx, []*schema.Message{
		schema.SystemMessage(writerSystemPrompt),
		schema.UserMessage(fmt.Sprintf(writerPromptTpl, prompt, now.Year(), notes)),
	})
	if err != nil {
		return nil, fmt.Errorf("write draft: %w", err)
	}
	if draft == "" {
		return nil, fmt.Errorf("write draft: empty model output")
	}
	logger.Log.Debugf("草稿完成，长度 %d", len(draft))

	final, err := p.generate(ctx, []*schema.Message{
		schema.SystemMessage(editorSystemPrompt),
		schema.UserMessage(fmt.Sprintf(editorPromptTpl, prompt, draft)),
	})
	if err != nil {
		return nil, fmt.Errorf("edit draft: %w", err)
	}
	if final == "" {
		logger.Log.Warnf("润色结果为空，保留草稿")
		final = draft
	}

	logger.Log.Infof("帖子生成完成: %s", prompt)
	return &dm.Post{
		Topic:     prompt,
		Draft:     draft,
		Final:     final,
		Degraded:  outcome.Degraded(),
		CreatedAt: now,
	}, nil
}

// enrich 并发抓取排名靠前的网页正文，失败的直接跳过
func (p *Pipeline) enrich(ctx context.Context, outcome research.Outcome) []Excerpt {
	if p.opts.FetchTop <= 0 || outcome.Report == nil {
		return nil
	}

	var targets []dm.SearchResult
	for _, r := range outcome.Report.WebResults.Results {
		if r.URL == "" {
			continue
		}
		targets = append(targets, r)
		if len(targets) >= p.opts.FetchTop {
			break
		}
	}
	if len(targets) == 0 {
		return nil
	}

	// 每个 goroutine 只写自己的下标
	texts := make([]string, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, t := range targets {
		g.Go(func() error {
			text, err := p.opts.Fetch(gctx, t.URL)
			if err != nil {
				logger.Log.Warnf("抓取正文失败 [%s]: %v", t.URL, err)
				return nil
			}
			texts[i] = truncateBytes(strings.TrimSpace(text), maxExcerptBytes)
			return nil
		})
	}
	_ = g.Wait()

	excerpts := make([]Excerpt, 0, len(targets))
	for i, t := range targets {
		if texts[i] == "" {
			continue
		}
		excerpts = append(excerpts, Excerpt{Title: t.Title, URL: t.URL, Text: texts[i]})
	}
	return excerpts
}

// generate 调用模型，等待限流器，遇到 429 按指数退避重试
func (p *Pipeline) generate(ctx context.Context, messages []*schema.Message) (string, error) {
	var lastErr error
	for i := 0; i <= maxModelRetries; i++ {
		if p.opts.Limiter != nil {
			if err := p.opts.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		resp, err := p.chatModel.Generate(ctx, messages)
		if err != nil {
			if !isRateLimited(err) {
				return "", err
			}
			lastErr = err
			if i == maxModelRetries {
				break
			}
			delay := p.opts.BaseDelay * time.Duration(1<<i)
			logger.Log.Warnf("模型限流，%v 后重试 (%d/%d)", delay, i+1, maxModelRetries)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			continue
		}
		if resp == nil {
			return "", nil
		}
		return StripFences(resp.Content), nil
	}
	return "", fmt.Errorf("failed after retries: %w", lastErr)
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// StripFences 去掉模型输出外层的 Markdown 代码块
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], " ") {
		// 去掉语言标记，例如 ```markdown
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// 不截断半个 UTF-8 字符
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
