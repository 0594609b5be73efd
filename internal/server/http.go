package server

import (
	"context"
	nethttp "net/http"
	"strconv"
	"time"

	_ "github.com/go-kratos/kratos/v2/encoding/json"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/post_radar/pkg/config"
	"github.com/iWorld-y/post_radar/pkg/model"
)

const (
	HeaderDegraded = "X-Research-Degraded"
	HeaderRunID    = "X-Run-Id"
)

// NewHTTPServer 创建 HTTP 服务并注册路由
func NewHTTPServer(c config.ServerConfig, s *Service) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	api := srv.Route("/api")
	api.POST("/research", s.handleResearch)
	api.GET("/research", s.handleListRuns)
	api.GET("/research/{id}", s.handleGetRun)
	api.POST("/post", s.handleCreatePost)

	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.JSON(nethttp.StatusOK, map[string]string{"status": "ok"})
	})
	return srv
}

func (s *Service) handleResearch(ctx http.Context) error {
	var in ResearchRequest
	if err := ctx.Bind(&in); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.Research(c, req.(*ResearchRequest))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}

	reply := out.(*ResearchReply)
	header := ctx.Response().Header()
	header.Set(HeaderDegraded, strconv.FormatBool(reply.Outcome.Degraded()))
	if reply.RunID != "" {
		header.Set(HeaderRunID, reply.RunID)
	}
	return ctx.JSON(nethttp.StatusOK, reply.Outcome)
}

func (s *Service) handleGetRun(ctx http.Context) error {
	id := ctx.Vars().Get("id")
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.GetRun(c, req.(string))
	})
	out, err := h(ctx, id)
	if err != nil {
		return err
	}
	run := out.(*model.Run)
	return ctx.Blob(nethttp.StatusOK, "application/json", run.Payload)
}

func (s *Service) handleListRuns(ctx http.Context) error {
	limit := 0
	if v := ctx.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return kerrors.BadRequest("INVALID_LIMIT", "limit must be an integer")
		}
		limit = n
	}
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.ListRuns(c, req.(int))
	})
	out, err := h(ctx, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(nethttp.StatusOK, out)
}

func (s *Service) handleCreatePost(ctx http.Context) error {
	var in PostRequest
	if err := ctx.Bind(&in); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.CreatePost(c, req.(*PostRequest))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	return ctx.JSON(nethttp.StatusOK, out)
}
