package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func staticSearcher(title string, calls *int32) Searcher {
	return SearcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		atomic.AddInt32(calls, 1)
		return &Response{Results: []Result{{Title: title}}}, nil
	})
}

func TestRouter_DispatchesByTopic(t *testing.T) {
	var generalCalls, newsCalls int32
	r := NewRouter(staticSearcher("web", &generalCalls), staticSearcher("news", &newsCalls))

	resp, err := r.Search(context.Background(), &Request{Query: "q", Topic: TopicNews})
	require.NoError(t, err)
	assert.Equal(t, "news", resp.Results[0].Title)

	resp, err = r.Search(context.Background(), &Request{Query: "q", Topic: TopicGeneral})
	require.NoError(t, err)
	assert.Equal(t, "web", resp.Results[0].Title)

	resp, err = r.Search(context.Background(), &Request{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "web", resp.Results[0].Title)

	assert.EqualValues(t, 2, generalCalls)
	assert.EqualValues(t, 1, newsCalls)
}

func TestNewRouter_NilNewsFallsBackToGeneral(t *testing.T) {
	var calls int32
	r := NewRouter(staticSearcher("web", &calls), nil)

	resp, err := r.Search(context.Background(), &Request{Topic: TopicNews})
	require.NoError(t, err)
	assert.Equal(t, "web", resp.Results[0].Title)
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	var calls int32
	flaky := SearcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		if atomic.AddInt32(&calls, 1) < 2 {
			return nil, errors.New("temporary")
		}
		return &Response{Results: []Result{{Title: "ok"}}}, nil
	})

	resp, err := WithRetry(flaky, 3, time.Millisecond).Search(context.Background(), &Request{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Results[0].Title)
	assert.EqualValues(t, 2, calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	var calls int32
	boom := errors.New("backend down")
	failing := SearcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})

	_, err := WithRetry(failing, 2, time.Millisecond).Search(context.Background(), &Request{Query: "q"})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 3, calls)
}

func TestWithRetry_ZeroRetriesIsPassthrough(t *testing.T) {
	var calls int32
	failing := SearcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("fail")
	})

	_, err := WithRetry(failing, 0, time.Second).Search(context.Background(), &Request{})
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	failing := SearcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		cancel()
		return nil, errors.New("fail")
	})

	_, err := WithRetry(failing, 5, time.Hour).Search(ctx, &Request{Query: "q"})
	assert.Error(t, err)
}

func TestWithRateLimit(t *testing.T) {
	var calls int32
	limited := WithRateLimit(staticSearcher("x", &calls), rate.NewLimiter(rate.Inf, 1))

	_, err := limited.Search(context.Background(), &Request{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := WithRateLimit(staticSearcher("x", &calls), rate.NewLimiter(rate.Every(time.Hour), 0))
	_, err = blocked.Search(ctx, &Request{})
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls)
}
