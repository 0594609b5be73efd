package server

import (
	"context"
	"errors"
	"strings"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/post_radar/pkg/model"
	"github.com/iWorld-y/post_radar/pkg/publish"
	"github.com/iWorld-y/post_radar/pkg/research"
	"github.com/iWorld-y/post_radar/pkg/storage"
)

// Researcher 调研接口
type Researcher interface {
	Research(ctx context.Context, topic string, maxResults int) research.Outcome
}

// PostWriter 帖子生成接口
type PostWriter interface {
	Run(ctx context.Context, prompt string, maxResults int) (*model.Post, error)
}

// RunStore 调研记录存储接口
type RunStore interface {
	SaveRun(ctx context.Context, out research.Outcome) (string, error)
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// ResearchRequest POST /api/research 请求体
type ResearchRequest struct {
	Topic      string `json:"topic"`
	MaxResults int    `json:"max_results"`
}

// ResearchReply 调研结果与记录 ID
type ResearchReply struct {
	Outcome research.Outcome
	RunID   string
}

// PostRequest POST /api/post 请求体
type PostRequest struct {
	Prompt     string `json:"prompt"`
	MaxResults int    `json:"max_results"`
}

// ListRunsReply GET /api/research 响应体
type ListRunsReply struct {
	Runs []model.Run `json:"runs"`
}

// Service HTTP 接口背后的业务逻辑
type Service struct {
	researcher Researcher
	writer     PostWriter
	store      RunStore
	sink       publish.Sink
	maxResults int
	log        *log.Helper
}

// Option 服务选项
type Option func(*Service)

// WithWriter 启用帖子生成
func WithWriter(w PostWriter) Option { return func(s *Service) { s.writer = w } }

// WithStore 启用调研记录存储
func WithStore(st RunStore) Option { return func(s *Service) { s.store = st } }

// WithSink 生成的帖子同时发布到 sink
func WithSink(sink publish.Sink) Option { return func(s *Service) { s.sink = sink } }

// WithMaxResults 请求未指定 max_results 时的默认值
func WithMaxResults(n int) Option { return func(s *Service) { s.maxResults = n } }

// NewService 创建服务
func NewService(researcher Researcher, logger log.Logger, opts ...Option) *Service {
	s := &Service{
		researcher: researcher,
		maxResults: research.DefaultMaxResults,
		log:        log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) resolveMax(n int) int {
	if n > 0 {
		return n
	}
	return s.maxResults
}

// Research 执行调研，配置了存储时保存结果。保存失败不影响返回
func (s *Service) Research(ctx context.Context, req *ResearchRequest) (*ResearchReply, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, kerrors.BadRequest("TOPIC_REQUIRED", "topic is required")
	}

	out := s.researcher.Research(ctx, req.Topic, s.resolveMax(req.MaxResults))
	reply := &ResearchReply{Outcome: out}
	if s.store != nil {
		id, err := s.store.SaveRun(ctx, out)
		if err != nil {
			s.log.WithContext(ctx).Errorf("保存调研记录失败 [%s]: %v", req.Topic, err)
		} else {
			reply.RunID = id
		}
	}
	return reply, nil
}

// GetRun 查询一条调研记录
func (s *Service) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if s.store == nil {
		return nil, kerrors.NotFound("RUN_NOT_FOUND", "storage is not configured")
	}
	run, err := s.store.GetRun(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, kerrors.NotFound("RUN_NOT_FOUND", "run "+id+" not found")
	}
	if err != nil {
		return nil, kerrors.InternalServer("STORAGE_ERROR", err.Error())
	}
	return run, nil
}

// ListRuns 列出最近的调研记录
func (s *Service) ListRuns(ctx context.Context, limit int) (*ListRunsReply, error) {
	if s.store == nil {
		return &ListRunsReply{Runs: []model.Run{}}, nil
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, kerrors.InternalServer("STORAGE_ERROR", err.Error())
	}
	if runs == nil {
		runs = []model.Run{}
	}
	return &ListRunsReply{Runs: runs}, nil
}

// CreatePost 生成帖子，配置了 sink 时发布。发布失败只记录日志
func (s *Service) CreatePost(ctx context.Context, req *PostRequest) (*model.Post, error) {
	if s.writer == nil {
		return nil, kerrors.ServiceUnavailable("WRITER_DISABLED", "llm is not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, kerrors.BadRequest("PROMPT_REQUIRED", "prompt is required")
	}

	post, err := s.writer.Run(ctx, req.Prompt, s.resolveMax(req.MaxResults))
	if err != nil {
		return nil, kerrors.InternalServer("POST_FAILED", err.Error())
	}
	if s.sink != nil {
		loc, err := s.sink.Publish(ctx, post)
		if err != nil {
			s.log.WithContext(ctx).Errorf("发布帖子失败: %v", err)
		} else {
			post.Location = loc
		}
	}
	return post, nil
}
