package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/launchwatch/launchcoin-feed/internal/cache"
	"github.com/launchwatch/launchcoin-feed/internal/config"
	"github.com/launchwatch/launchcoin-feed/internal/extract"
	"github.com/launchwatch/launchcoin-feed/internal/models"
	"github.com/launchwatch/launchcoin-feed/internal/sources"
	"github.com/sirupsen/logrus"
)

// Rejection reasons reported in metrics
const (
	reasonTooOld        = "too_old"
	reasonNoPattern     = "no_pattern"
	reasonUnknownAuthor = "unknown_author"
	reasonMalformed     = "malformed"
	reasonOther         = "other"
)

// Service polls the search provider for launch mentions and owns the
// launch cache, the author directory and the watermark. It is the only
// writer of all three.
type Service struct {
	config    *config.Config
	source    sources.Searcher
	extractor *extract.Extractor

	cache     *cache.BoundedCache
	authors   *cache.AuthorDirectory
	watermark *cache.Watermark

	retryDelay time.Duration
	pollMu     sync.Mutex

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds polling metrics
type Metrics struct {
	Polls            int            `json:"polls"`
	EmptyPolls       int            `json:"empty_polls"`
	TweetsFetched    int            `json:"tweets_fetched"`
	Accepted         int            `json:"accepted"`
	Rejected         map[string]int `json:"rejected"`
	ErrorCount       int            `json:"error_count"`
	LastPoll         time.Time      `json:"last_poll"`
	LastPollDuration string         `json:"last_poll_duration"`
	LastError        string         `json:"last_error,omitempty"`
	Watermark        string         `json:"watermark"`
	CacheSize        int            `json:"cache_size"`
	AuthorCount      int            `json:"author_count"`
}

// NewService creates a new polling service
func NewService(cfg *config.Config, source sources.Searcher) *Service {
	return &Service{
		config:     cfg,
		source:     source,
		extractor:  extract.NewExtractor(cfg.TriggerPhrase, cfg.MaxTweetAge),
		cache:      cache.NewBoundedCache(cfg.CacheCapacity),
		authors:    cache.NewAuthorDirectory(cfg.AuthorDirectoryLimit),
		watermark:  &cache.Watermark{},
		retryDelay: cfg.PollInterval,
		metrics: &Metrics{
			Rejected: make(map[string]int),
		},
	}
}

// Reader returns the read-only view of the launch cache
func (s *Service) Reader() *cache.Reader {
	return cache.NewReader(s.cache)
}

// Snapshot returns the cached launches, oldest first
func (s *Service) Snapshot() []models.Record {
	return s.cache.Snapshot()
}

// Watermark returns the newest tweet id fetched so far
func (s *Service) Watermark() string {
	return s.watermark.Get()
}

// Run polls until ctx is cancelled. Every failure is retried after the
// same fixed delay; the loop never gives up on its own.
func (s *Service) Run(ctx context.Context) error {
	logrus.Infof("Starting polling for %q every %v", s.config.TriggerPhrase, s.retryDelay)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Polling stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				logrus.Info("Polling stopped")
				return ctx.Err()
			}
			logrus.Errorf("Error polling tweets: %v", err)
		}

		timer.Reset(s.retryDelay)
	}
}

// TriggerPoll starts one extra iteration in the background. It returns false
// without doing anything when a poll is already running.
func (s *Service) TriggerPoll() bool {
	if !s.pollMu.TryLock() {
		logrus.Info("Manual poll skipped, a poll is already running")
		return false
	}

	go func() {
		defer s.pollMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		accepted, err := s.runLocked(ctx)
		if err != nil {
			logrus.Errorf("Manual poll trigger failed: %v", err)
			return
		}
		logrus.Infof("Manual poll stored %d launches", accepted)
	}()
	return true
}

// RunOnce performs a single fetch-filter-store iteration and returns the
// number of accepted launches. Concurrent calls are serialized.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.runLocked(ctx)
}

// runLocked is RunOnce without the locking; callers hold pollMu
func (s *Service) runLocked(ctx context.Context) (accepted int, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
			s.recordError(err, time.Since(start))
		}
	}()

	result, err := s.source.Search(ctx, sources.SearchRequest{
		Query:      s.config.TriggerPhrase,
		SinceID:    s.watermark.Get(),
		MaxResults: s.config.PageSize,
	})
	logrus.Infof("API response time: %v", time.Since(start))
	if err != nil {
		s.recordError(err, time.Since(start))
		return 0, fmt.Errorf("search failed: %w", err)
	}

	if result.ResultCount == 0 {
		logrus.Info("No new tweets found")
		s.recordPoll(0, 0, nil, time.Since(start))
		return 0, nil
	}

	logrus.Infof("Found %d tweets in response", result.ResultCount)

	// The watermark moves past the whole batch before filtering, so rejected
	// tweets are never fetched again.
	if s.watermark.Advance(result.NewestID) {
		logrus.Infof("Updated last tweet id: %s", result.NewestID)
	} else {
		logrus.Warnf("Watermark not advanced by newest id %q (current %q)", result.NewestID, s.watermark.Get())
	}

	rejected := make(map[string]int)
	if dropped := result.ResultCount - len(result.Items); dropped > 0 {
		rejected[reasonMalformed] += dropped
	}

	for _, item := range result.Items {
		record, author, err := s.extractor.Extract(item, result.Authors)
		if err != nil {
			logrus.Infof("Skipped tweet ID %s: %v (text: %s)", item.ID, err, item.Text)
			rejected[rejectionReason(err)]++
			continue
		}

		s.authors.Upsert(item.AuthorID, author)
		s.cache.Append(record)
		accepted++
		logrus.Infof("Stored tweet ID %s, symbol: %s, additional_text: %s", record.ID, record.Symbol, record.AdditionalText)
	}

	s.recordPoll(result.ResultCount, accepted, rejected, time.Since(start))
	return accepted, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, extract.ErrTooOld):
		return reasonTooOld
	case errors.Is(err, extract.ErrNoLaunchPattern):
		return reasonNoPattern
	case errors.Is(err, extract.ErrUnknownAuthor):
		return reasonUnknownAuthor
	default:
		return reasonOther
	}
}

func (s *Service) recordPoll(fetched, accepted int, rejected map[string]int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Polls++
	if fetched == 0 {
		s.metrics.EmptyPolls++
	}
	s.metrics.TweetsFetched += fetched
	s.metrics.Accepted += accepted
	for reason, count := range rejected {
		s.metrics.Rejected[reason] += count
	}
	s.metrics.LastPoll = time.Now()
	s.metrics.LastPollDuration = duration.String()
}

func (s *Service) recordError(err error, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Polls++
	s.metrics.ErrorCount++
	s.metrics.LastError = err.Error()
	s.metrics.LastPoll = time.Now()
	s.metrics.LastPollDuration = duration.String()
}

func (s *Service) currentMetrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := *s.metrics
	m.Rejected = make(map[string]int, len(s.metrics.Rejected))
	for reason, count := range s.metrics.Rejected {
		m.Rejected[reason] = count
	}
	m.Watermark = s.watermark.Get()
	m.CacheSize = s.cache.Len()
	m.AuthorCount = s.authors.Len()
	return m
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	m := s.currentMetrics()
	data, _ := json.MarshalIndent(m, "", "  ")
	return string(data)
}

// GenerateDigest summarizes the launches currently cached
func (s *Service) GenerateDigest() *models.Digest {
	launches := s.cache.Snapshot()

	digest := &models.Digest{
		GeneratedAt:   time.Now(),
		TotalLaunches: len(launches),
		Launches:      launches,
		Symbols:       make(map[string]int),
	}

	for _, launch := range launches {
		digest.Symbols[launch.Symbol]++
	}
	digest.TopSymbols = topSymbols(digest.Symbols, 5)

	return digest
}

func topSymbols(symbolCount map[string]int, limit int) []string {
	type symbolScore struct {
		symbol string
		count  int
	}

	scores := make([]symbolScore, 0, len(symbolCount))
	for symbol, count := range symbolCount {
		scores = append(scores, symbolScore{symbol, count})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].count != scores[j].count {
			return scores[i].count > scores[j].count
		}
		return scores[i].symbol < scores[j].symbol
	})

	var top []string
	for i, score := range scores {
		if i >= limit {
			break
		}
		top = append(top, fmt.Sprintf("$%s (%d)", score.symbol, score.count))
	}

	return top
}
