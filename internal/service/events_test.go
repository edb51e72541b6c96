package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePullRequestEvent(t *testing.T) {
	body := []byte(`{
		"action": "opened",
		"pull_request": {
			"number": 42,
			"merged": false,
			"head": {"ref": "feature/EQ-7-login"},
			"user": {"login": "alice"}
		},
		"repository": {
			"full_name": "acme/app",
			"html_url": "https://github.com/acme/app"
		},
		"installation": {"id": 99}
	}`)

	ev, err := ParsePullRequestEvent(body)
	require.NoError(t, err)

	assert.Equal(t, "opened", ev.Action)
	assert.Equal(t, 42, ev.Number)
	assert.False(t, ev.Merged)
	assert.Equal(t, "feature/EQ-7-login", ev.HeadRef)
	assert.Equal(t, "alice", ev.AuthorLogin)
	assert.Equal(t, "acme/app", ev.RepoFullName)
	assert.Equal(t, "https://github.com/acme/app", ev.RepoURL)
	assert.Equal(t, int64(99), ev.InstallationID)
}

func TestParsePullRequestEvent_MissingMetadata(t *testing.T) {
	cases := map[string]string{
		"no number":       `{"action":"opened","repository":{"full_name":"acme/app"},"installation":{"id":1}}`,
		"no repo":         `{"action":"opened","pull_request":{"number":1},"installation":{"id":1}}`,
		"no installation": `{"action":"opened","pull_request":{"number":1},"repository":{"full_name":"acme/app"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePullRequestEvent([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestParsePullRequestEvent_InvalidJSON(t *testing.T) {
	_, err := ParsePullRequestEvent([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseReviewEvent(t *testing.T) {
	body := []byte(`{
		"action": "submitted",
		"review": {"state": "approved", "user": {"login": "bob"}},
		"pull_request": {
			"number": 7,
			"head": {"ref": "feature/EQ-3-search"},
			"user": {"login": "alice"}
		},
		"repository": {
			"full_name": "acme/app",
			"html_url": "https://github.com/acme/app"
		},
		"installation": {"id": 99}
	}`)

	ev, err := ParseReviewEvent(body)
	require.NoError(t, err)

	assert.Equal(t, "submitted", ev.Action)
	assert.Equal(t, "approved", ev.State)
	assert.Equal(t, "bob", ev.ReviewerLogin)
	assert.Equal(t, "alice", ev.AuthorLogin)
	assert.Equal(t, "feature/EQ-3-search", ev.HeadRef)
	assert.Equal(t, int64(99), ev.InstallationID)
}

func TestParseReviewEvent_MissingState(t *testing.T) {
	body := []byte(`{"action":"submitted","repository":{"full_name":"acme/app"}}`)
	_, err := ParseReviewEvent(body)
	assert.Error(t, err)
}
