package jira

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnauthorized = errors.New("jira authentication failed (401/403)")
	ErrRateLimited  = errors.New("jira rate limit exceeded (429)")
	ErrNotFound     = errors.New("jira resource not found")
)

// Client is the interface for interacting with Jira.
type Client interface {
	// SearchIssuesWithHistory returns one page of issues with their changelog expanded.
	SearchIssuesWithHistory(ctx context.Context, jql string, startAt, maxResults int) (*SearchResponse, error)
	// SearchIssueKeys returns the keys of every issue matching jql.
	SearchIssueKeys(ctx context.Context, jql string) ([]string, error)
	// GetSprints returns the board's sprints in the given state from startAt onwards.
	GetSprints(ctx context.Context, boardID, startAt int, state string) ([]SprintDTO, error)
}

// Config holds the authentication and connection settings for Jira.
type Config struct {
	BaseURL string

	// Personal Access Token, preferred over cookies
	Token string

	// Data Center Cookies
	XsrfToken  string
	SessionID  string
	RememberMe string

	// Load Balancer Cookies
	GCILB string
	GCLB  string

	// Performance Settings
	RequestDelay time.Duration

	// Extra issue fields requested on search, e.g. the story points custom field
	ExtraFields []string
}

// NewClient creates a new Jira client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewDataCenterClient(cfg)
}
