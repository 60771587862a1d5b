package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/launchwatch/launchcoin-feed/internal/config"
	"github.com/launchwatch/launchcoin-feed/internal/models"
	"github.com/launchwatch/launchcoin-feed/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSearcher is a mock implementation of the search provider
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) GetName() string {
	return "mock"
}

func (m *MockSearcher) IsEnabled() bool {
	return true
}

func (m *MockSearcher) Search(ctx context.Context, req sources.SearchRequest) (*models.SearchResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.SearchResult)
	return result, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		TriggerPhrase:        "@launchcoin",
		PageSize:             10,
		PollInterval:         5 * time.Millisecond,
		MaxTweetAge:          48 * time.Hour,
		CacheCapacity:        100,
		AuthorDirectoryLimit: 100,
	}
}

func request(sinceID string) sources.SearchRequest {
	return sources.SearchRequest{Query: "@launchcoin", SinceID: sinceID, MaxResults: 10}
}

func alice() models.Author {
	return models.Author{ID: "42", Username: "alice", Name: "Alice", FollowersCount: 1200}
}

func batch(newestID string, items ...models.Item) *models.SearchResult {
	return &models.SearchResult{
		Items:       items,
		Authors:     map[string]models.Author{"42": alice()},
		NewestID:    newestID,
		ResultCount: len(items),
	}
}

func TestService_RunOnceStoresLaunches(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	now := time.Now()
	searcher.On("Search", mock.Anything, request("")).Return(batch("102",
		models.Item{ID: "102", Text: "@launchcoin new token $FOO +Great Name", CreatedAt: now, AuthorID: "42"},
		models.Item{ID: "101", Text: "@launchcoin hello world", CreatedAt: now, AuthorID: "42"},
	), nil).Once()

	accepted, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)

	snapshot := service.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "FOO", snapshot[0].Symbol)
	assert.Equal(t, "Great Name", snapshot[0].AdditionalText)
	assert.Equal(t, "https://twitter.com/alice/status/102", snapshot[0].URL)
	assert.Equal(t, "102", service.Watermark())

	author, ok := service.authors.Get("42")
	assert.True(t, ok)
	assert.Equal(t, "alice", author.Username)

	searcher.AssertExpectations(t)
}

func TestService_RunOnceAdvancesWatermarkWhenAllRejected(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	old := time.Now().Add(-50 * time.Hour)
	searcher.On("Search", mock.Anything, request("")).Return(batch("205",
		models.Item{ID: "205", Text: "@launchcoin $OLD +Old Coin", CreatedAt: old, AuthorID: "42"},
		models.Item{ID: "204", Text: "@launchcoin $ANON +Anon Coin", CreatedAt: time.Now(), AuthorID: "99"},
	), nil).Once()

	accepted, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, accepted)
	assert.Empty(t, service.Snapshot())
	assert.Equal(t, "205", service.Watermark())

	// rejected authors are not remembered
	assert.Equal(t, 0, service.authors.Len())

	m := service.currentMetrics()
	assert.Equal(t, 1, m.Rejected[reasonTooOld])
	assert.Equal(t, 1, m.Rejected[reasonUnknownAuthor])
}

func TestService_RunOnceUsesWatermarkAsSinceID(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	now := time.Now()
	searcher.On("Search", mock.Anything, request("")).Return(batch("300",
		models.Item{ID: "300", Text: "@launchcoin $A +first", CreatedAt: now, AuthorID: "42"},
	), nil).Once()
	searcher.On("Search", mock.Anything, request("300")).Return(batch("310",
		models.Item{ID: "310", Text: "@launchcoin $B +second", CreatedAt: now, AuthorID: "42"},
	), nil).Once()
	searcher.On("Search", mock.Anything, request("310")).Return(&models.SearchResult{}, nil).Once()

	for i := 0; i < 3; i++ {
		_, err := service.RunOnce(context.Background())
		require.NoError(t, err)
	}

	// empty page leaves the watermark alone
	assert.Equal(t, "310", service.Watermark())
	snapshot := service.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "A", snapshot[0].Symbol)
	assert.Equal(t, "B", snapshot[1].Symbol)

	searcher.AssertExpectations(t)
}

func TestService_RunOnceCountsMalformedTweets(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	result := batch("400")
	result.ResultCount = 2
	searcher.On("Search", mock.Anything, request("")).Return(result, nil).Once()

	_, err := service.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "400", service.Watermark())
	assert.Equal(t, 2, service.currentMetrics().Rejected[reasonMalformed])
}

func TestService_RunOnceError(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	searcher.On("Search", mock.Anything, request("")).Return(nil, sources.ErrRateLimited).Once()

	_, err := service.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sources.ErrRateLimited)
	assert.Equal(t, "", service.Watermark())

	m := service.currentMetrics()
	assert.Equal(t, 1, m.ErrorCount)
	assert.Contains(t, m.LastError, "rate limit")
}

func TestService_RunOnceRecoversFromPanic(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	// a nil result without an error makes the iteration blow up
	searcher.On("Search", mock.Anything, request("")).Return(nil, nil).Once()

	_, err := service.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected error")
	assert.Equal(t, 1, service.currentMetrics().ErrorCount)
}

func TestService_RunRetriesUntilCancelled(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	searcher.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Run(func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 3 {
			cancel()
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 3)
}

func TestService_GetMetrics(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	searcher.On("Search", mock.Anything, request("")).Return(batch("500",
		models.Item{ID: "500", Text: "@launchcoin $M +metrics", CreatedAt: time.Now(), AuthorID: "42"},
	), nil).Once()

	_, err := service.RunOnce(context.Background())
	require.NoError(t, err)

	var m Metrics
	require.NoError(t, json.Unmarshal([]byte(service.GetMetrics()), &m))
	assert.Equal(t, 1, m.Polls)
	assert.Equal(t, 1, m.Accepted)
	assert.Equal(t, 1, m.TweetsFetched)
	assert.Equal(t, "500", m.Watermark)
	assert.Equal(t, 1, m.CacheSize)
	assert.Equal(t, 1, m.AuthorCount)
}

func TestService_GenerateDigest(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	now := time.Now()
	searcher.On("Search", mock.Anything, request("")).Return(batch("603",
		models.Item{ID: "601", Text: "@launchcoin $FOO +one", CreatedAt: now, AuthorID: "42"},
		models.Item{ID: "602", Text: "@launchcoin $BAR +two", CreatedAt: now, AuthorID: "42"},
		models.Item{ID: "603", Text: "@launchcoin $foo +three", CreatedAt: now, AuthorID: "42"},
	), nil).Once()

	_, err := service.RunOnce(context.Background())
	require.NoError(t, err)

	digest := service.GenerateDigest()
	assert.Equal(t, 3, digest.TotalLaunches)
	assert.Equal(t, 2, digest.Symbols["FOO"])
	assert.Equal(t, 1, digest.Symbols["BAR"])
	assert.Equal(t, []string{"$FOO (2)", "$BAR (1)"}, digest.TopSymbols)
}

func TestService_TriggerPollSkipsWhilePolling(t *testing.T) {
	searcher := &MockSearcher{}
	service := NewService(testConfig(), searcher)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	searcher.On("Search", mock.Anything, request("")).Run(func(mock.Arguments) {
		started <- struct{}{}
		<-release
	}).Return(batch(""), nil).Once()
	searcher.On("Search", mock.Anything, request("")).Return(batch(""), nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := service.RunOnce(context.Background())
		assert.NoError(t, err)
	}()
	<-started

	for i := 0; i < 5; i++ {
		assert.False(t, service.TriggerPoll())
	}

	close(release)
	<-done

	assert.True(t, service.TriggerPoll())
	assert.Eventually(t, func() bool {
		return service.currentMetrics().Polls == 2
	}, time.Second, 5*time.Millisecond)

	// the skipped triggers never reached the provider
	searcher.AssertNumberOfCalls(t, "Search", 2)
}
