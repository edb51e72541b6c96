package service

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// GitHub webhook wire shapes, parsed once at the boundary so downstream
// handlers work with validated, strongly-typed events instead of nested maps.

type rawPullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number int  `json:"number"`
		Merged bool `json:"merged"`
		Head   struct {
			Ref string `json:"ref"`
		} `json:"head"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
	Installation struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

type rawReviewPayload struct {
	Action string `json:"action"`
	Review struct {
		State string `json:"state"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"review"`
	PullRequest struct {
		Number int `json:"number"`
		Head   struct {
			Ref string `json:"ref"`
		} `json:"head"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
	Installation struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

// PullRequestEvent is a validated pull_request webhook event.
type PullRequestEvent struct {
	Action         string
	Number         int
	Merged         bool
	HeadRef        string
	AuthorLogin    string
	RepoFullName   string
	RepoURL        string
	InstallationID int64
}

// ReviewEvent is a validated pull_request_review webhook event.
type ReviewEvent struct {
	Action         string
	State          string
	ReviewerLogin  string
	AuthorLogin    string
	Number         int
	HeadRef        string
	RepoFullName   string
	RepoURL        string
	InstallationID int64
}

// ParsePullRequestEvent decodes and validates a pull_request payload.
func ParsePullRequestEvent(body []byte) (*PullRequestEvent, error) {
	var raw rawPullRequestPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "decode pull_request payload")
	}

	ev := &PullRequestEvent{
		Action:         raw.Action,
		Number:         raw.PullRequest.Number,
		Merged:         raw.PullRequest.Merged,
		HeadRef:        raw.PullRequest.Head.Ref,
		AuthorLogin:    raw.PullRequest.User.Login,
		RepoFullName:   raw.Repository.FullName,
		RepoURL:        raw.Repository.HTMLURL,
		InstallationID: raw.Installation.ID,
	}

	if ev.Number == 0 || ev.RepoFullName == "" || ev.InstallationID == 0 {
		return nil, errors.New("pull_request payload missing required metadata")
	}
	return ev, nil
}

// ParseReviewEvent decodes and validates a pull_request_review payload.
func ParseReviewEvent(body []byte) (*ReviewEvent, error) {
	var raw rawReviewPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "decode pull_request_review payload")
	}

	ev := &ReviewEvent{
		Action:         raw.Action,
		State:          raw.Review.State,
		ReviewerLogin:  raw.Review.User.Login,
		AuthorLogin:    raw.PullRequest.User.Login,
		Number:         raw.PullRequest.Number,
		HeadRef:        raw.PullRequest.Head.Ref,
		RepoFullName:   raw.Repository.FullName,
		RepoURL:        raw.Repository.HTMLURL,
		InstallationID: raw.Installation.ID,
	}

	if ev.RepoFullName == "" || ev.State == "" {
		return nil, errors.New("pull_request_review payload missing required metadata")
	}
	return ev, nil
}
