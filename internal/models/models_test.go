package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_MarshalJSON(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	record := Record{
		ID:        "1790000000000000001",
		Text:      "@launchcoin $FOO +Great Name",
		CreatedAt: time.Date(2025, 5, 20, 7, 0, 0, 0, est),
		URL:       Permalink("alice", "1790000000000000001"),
		User: Author{
			ID:             "42",
			Username:       "alice",
			Name:           "Alice",
			FollowersCount: 5,
			Description:    DefaultDescription,
		},
		Symbol:         "FOO",
		AdditionalText: "Great Name",
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "2025-05-20T12:00:00+00:00", decoded["created_at"])
	assert.Equal(t, "https://twitter.com/alice/status/1790000000000000001", decoded["url"])

	user := decoded["user"].(map[string]interface{})
	assert.NotContains(t, user, "id")
	assert.ElementsMatch(t,
		[]string{"username", "name", "profile_image_url", "followers_count", "description", "verified"},
		keys(user))
	assert.ElementsMatch(t,
		[]string{"id", "text", "created_at", "url", "user", "symbol", "additional_text"},
		keys(decoded))
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
