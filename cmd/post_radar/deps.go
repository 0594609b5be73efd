package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iWorld-y/post_radar/pkg/config"
	"github.com/iWorld-y/post_radar/pkg/logger"
	"github.com/iWorld-y/post_radar/pkg/publish"
	"github.com/iWorld-y/post_radar/pkg/research"
	"github.com/iWorld-y/post_radar/pkg/search"
	"github.com/iWorld-y/post_radar/pkg/search/cache"
	"github.com/iWorld-y/post_radar/pkg/search/factory"
	"github.com/iWorld-y/post_radar/pkg/storage"
	"github.com/iWorld-y/post_radar/pkg/writer"
)

// deps 命令共用的组件，可选组件未配置时为 nil
type deps struct {
	Researcher *research.Researcher
	Writer     *writer.Pipeline
	Sink       publish.Sink
	Store      *storage.Storage

	redis *redis.Client
}

// Close 释放连接
func (d *deps) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			logger.Log.Warnf("关闭数据库失败: %v", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			logger.Log.Warnf("关闭 Redis 失败: %v", err)
		}
	}
}

func build(ctx context.Context, cfg *config.Config, withWriter bool) (*deps, error) {
	d := &deps{}

	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	// 缓存放在最外层，命中时不消耗限流配额
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Log.Warnf("Redis 不可用，关闭搜索缓存: %v", err)
		} else {
			d.redis = rdb
			searcher = cache.New(searcher, cache.NewRedisStore(rdb), cfg.CacheTTL())
			logger.Log.Infof("已启用搜索缓存: %s", cfg.Redis.Addr)
		}
	}
	d.Researcher = newResearcher(cfg, searcher)

	if cfg.DB.Host != "" {
		store, err := storage.NewStorage(cfg.DB)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("数据库初始化失败: %w", err)
		}
		d.Store = store
	}

	if !withWriter {
		return d, nil
	}

	chatModel, err := writer.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Writer = writer.New(d.Researcher, chatModel, writer.Options{
		FetchTop: cfg.Writer.FetchTop,
		Limiter:  factory.NewLimiter(cfg.Concurrency),
	})

	if cfg.Minio.Endpoint != "" {
		sink, err := publish.NewMinioSink(ctx, cfg.Minio)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("对象存储初始化失败: %w", err)
		}
		d.Sink = sink
	} else {
		d.Sink = publish.NewFileSink(cfg.Output.Dir)
	}
	return d, nil
}

func newResearcher(cfg *config.Config, searcher search.Searcher) *research.Researcher {
	return research.New(searcher, research.Options{
		WebQueryResults:  cfg.Research.WebQueryResults,
		NewsQueryResults: cfg.Research.NewsQueryResults,
		QueryTimeout:     cfg.QueryTimeout(),
		ReferenceYear:    cfg.Research.ReferenceYear,
	})
}
