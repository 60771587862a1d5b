package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/launchwatch/launchcoin-feed/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the API answers 429
var ErrRateLimited = errors.New("twitter API rate limit hit")

const searchPath = "/2/tweets/search/recent"

var (
	tweetFields = []string{"created_at", "author_id", "text"}
	userFields  = []string{"name", "username", "verified", "public_metrics", "profile_image_url", "description", "verified_type"}
)

// TwitterSource implements the Twitter/X v2 recent search API
type TwitterSource struct {
	bearerToken string
	client      *resty.Client
	limiter     *rate.Limiter
}

type twitterSearchResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		OldestID    string `json:"oldest_id"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
	Errors []twitterError `json:"errors"`
}

type twitterTweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

type twitterUser struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	Verified        bool   `json:"verified"`
	ProfileImageURL string `json:"profile_image_url"`
	Description     string `json:"description"`
	PublicMetrics   struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

type twitterError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

// NewTwitterSource creates a new Twitter source.
// minInterval paces outgoing requests; zero disables pacing.
func NewTwitterSource(baseURL, bearerToken string, minInterval time.Duration) *TwitterSource {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &TwitterSource{
		bearerToken: bearerToken,
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "Launchcoin-Feed/1.0"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (t *TwitterSource) GetName() string {
	return "twitter"
}

func (t *TwitterSource) IsEnabled() bool {
	return t.bearerToken != ""
}

// Search fetches one page of recent tweets matching the query
func (t *TwitterSource) Search(ctx context.Context, req SearchRequest) (*models.SearchResult, error) {
	if !t.IsEnabled() {
		return nil, fmt.Errorf("twitter source disabled - missing bearer token")
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := map[string]string{
		"query":        req.Query,
		"max_results":  strconv.Itoa(req.MaxResults),
		"tweet.fields": strings.Join(tweetFields, ","),
		"user.fields":  strings.Join(userFields, ","),
		"expansions":   "author_id",
	}
	if req.SinceID != "" {
		params["since_id"] = req.SinceID
	}

	logrus.Debugf("Twitter API request: query=%q since_id=%q", req.Query, req.SinceID)

	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(t.bearerToken).
		SetQueryParams(params).
		Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("twitter search request failed: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		if resetTime := resp.Header().Get("x-rate-limit-reset"); resetTime != "" {
			logrus.Infof("Twitter rate limit will reset at: %s", resetTime)
		}
		return nil, ErrRateLimited
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Twitter response: %w", err)
	}

	// Partial errors are tolerated as long as data came back
	if len(searchResp.Data) == 0 && len(searchResp.Errors) > 0 {
		first := searchResp.Errors[0]
		return nil, fmt.Errorf("twitter API error: %s: %s", first.Title, first.Detail)
	}

	return convertSearchResponse(&searchResp), nil
}

func convertSearchResponse(searchResp *twitterSearchResponse) *models.SearchResult {
	result := &models.SearchResult{
		Items:       make([]models.Item, 0, len(searchResp.Data)),
		Authors:     make(map[string]models.Author, len(searchResp.Includes.Users)),
		NewestID:    searchResp.Meta.NewestID,
		ResultCount: len(searchResp.Data),
	}

	for _, user := range searchResp.Includes.Users {
		result.Authors[user.ID] = models.Author{
			ID:              user.ID,
			Username:        user.Username,
			Name:            user.Name,
			ProfileImageURL: user.ProfileImageURL,
			FollowersCount:  user.PublicMetrics.FollowersCount,
			Description:     user.Description,
			Verified:        user.Verified,
		}
	}

	for _, tweet := range searchResp.Data {
		createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
		if err != nil {
			logrus.Errorf("Failed to parse Twitter timestamp for tweet %s: %v", tweet.ID, err)
			continue
		}

		result.Items = append(result.Items, models.Item{
			ID:        tweet.ID,
			Text:      tweet.Text,
			CreatedAt: createdAt,
			AuthorID:  tweet.AuthorID,
		})
	}

	return result
}
