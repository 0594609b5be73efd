package search

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/post_radar/pkg/logger"
)

// SearcherFunc 函数适配器
type SearcherFunc func(ctx context.Context, req *Request) (*Response, error)

// Search implements Searcher
func (f SearcherFunc) Search(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// WithRetry 失败后按 baseDelay*2^i 退避重试，最多 maxRetries 次
func WithRetry(next Searcher, maxRetries int, baseDelay time.Duration) Searcher {
	if maxRetries <= 0 {
		return next
	}
	return SearcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		var lastErr error
		for i := 0; i <= maxRetries; i++ {
			resp, err := next.Search(ctx, req)
			if err == nil {
				return resp, nil
			}
			lastErr = err
			if i == maxRetries || ctx.Err() != nil {
				break
			}

			delay := baseDelay * time.Duration(1<<i)
			logger.Log.Warnf("搜索失败 [%s]，%v 后重试 (%d/%d): %v", req.Query, delay, i+1, maxRetries, err)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		return nil, lastErr
	})
}

// WithRateLimit 每次调用前等待限流器
func WithRateLimit(next Searcher, limiter *rate.Limiter) Searcher {
	if limiter == nil {
		return next
	}
	return SearcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return next.Search(ctx, req)
	})
}
