package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	searchPageSize = 100
	searchFields   = "summary,issuetype,status,created,updated,resolutiondate"
)

type dcClient struct {
	cfg        Config
	httpClient *http.Client

	// Spaces request starts so the delay applies across goroutines
	requestMutex sync.Mutex
	lastRequest  time.Time

	// Session Cache
	cache      map[string]*cacheEntry
	cacheMutex sync.Mutex
}

type cacheEntry struct {
	Value       any
	Expiration  time.Time
	AccessCount int
	OriginalTTL time.Duration
}

func NewDataCenterClient(cfg Config) Client {
	if cfg.RequestDelay < 0 {
		cfg.RequestDelay = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &dcClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		cache: make(map[string]*cacheEntry),
	}
}

func (c *dcClient) getFromCache(key string) (any, bool) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		log.Debug().Str("key", key).Msg("Cache miss")
		return nil, false
	}

	if time.Now().After(entry.Expiration) {
		delete(c.cache, key)
		return nil, false
	}
	log.Debug().Str("key", key).Msg("Cache hit")

	// Sliding window extension
	if entry.AccessCount < 6 {
		entry.Expiration = time.Now().Add(entry.OriginalTTL)
		entry.AccessCount++
		log.Trace().Str("key", key).Int("count", entry.AccessCount).Msg("Extended cache TTL")
	}

	return entry.Value, true
}

func (c *dcClient) addToCache(key string, value any, ttl time.Duration) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	c.cache[key] = &cacheEntry{
		Value:       value,
		Expiration:  time.Now().Add(ttl),
		OriginalTTL: ttl,
		AccessCount: 1,
	}
	log.Debug().Str("key", key).Dur("ttl", ttl).Msg("Added to cache")
}

// throttle waits until RequestDelay has passed since the previous request.
// The caller holds requestMutex.
func (c *dcClient) throttle(ctx context.Context) error {
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling Jira request")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *dcClient) authenticateRequest(req *http.Request) {
	// 1. Prioritize Personal Access Token (PAT)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
		return
	}

	// 2. Fallback to session cookies
	cookies := []struct {
		name  string
		value string
	}{
		{"atlassian.xsrf.token", c.cfg.XsrfToken},
		{"JSESSIONID", c.cfg.SessionID},
		{"seraph.rememberme.cookie", c.cfg.RememberMe},
		{"GCILB", c.cfg.GCILB},
		{"GCLB", c.cfg.GCLB},
	}

	var cookiePairs []string
	for _, cookie := range cookies {
		if cookie.value != "" {
			// Built by hand: net/http's RFC 6265 validation drops GCLB values containing double quotes.
			cookiePairs = append(cookiePairs, fmt.Sprintf("%s=%s", cookie.name, cookie.value))
		}
	}

	if len(cookiePairs) > 0 {
		req.Header.Set("Cookie", strings.Join(cookiePairs, "; "))
	}
}

// getJSON performs a throttled, authenticated GET and decodes the body into out.
func (c *dcClient) getJSON(ctx context.Context, path string, params url.Values, what string, out any) error {
	c.requestMutex.Lock()
	err := c.throttle(ctx)
	c.requestMutex.Unlock()
	if err != nil {
		return err
	}

	reqURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	log.Debug().Str("url", reqURL).Msg("Jira request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.authenticateRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, what)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: check the personal access token or session cookies", ErrUnauthorized)
		case http.StatusTooManyRequests:
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				return fmt.Errorf("%w: retry after %s seconds", ErrRateLimited, retryAfter)
			}
			return ErrRateLimited
		default:
			return fmt.Errorf("jira API returned status %d for %s", resp.StatusCode, what)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", what, err)
	}
	return nil
}

func (c *dcClient) SearchIssuesWithHistory(ctx context.Context, jql string, startAt, maxResults int) (*SearchResponse, error) {
	cacheKey := fmt.Sprintf("search:%s:%d:%d:changelog", jql, startAt, maxResults)
	if val, ok := c.getFromCache(cacheKey); ok {
		return val.(*SearchResponse), nil
	}

	fields := searchFields
	if len(c.cfg.ExtraFields) > 0 {
		fields += "," + strings.Join(c.cfg.ExtraFields, ",")
	}

	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", strconv.Itoa(startAt))
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("fields", fields)
	params.Set("expand", "changelog")

	log.Info().Str("jql", jql).Int("startAt", startAt).Msg("Requesting issues from Jira")

	var result SearchResponse
	if err := c.getJSON(ctx, "/rest/api/2/search", params, "issue search", &result); err != nil {
		return nil, err
	}

	c.addToCache(cacheKey, &result, 10*time.Minute)
	return &result, nil
}

func (c *dcClient) SearchIssueKeys(ctx context.Context, jql string) ([]string, error) {
	cacheKey := "keys:" + jql
	if val, ok := c.getFromCache(cacheKey); ok {
		return val.([]string), nil
	}

	var keys []string
	for startAt := 0; ; {
		params := url.Values{}
		params.Set("jql", jql)
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(searchPageSize))
		params.Set("fields", "key")

		var page SearchResponse
		if err := c.getJSON(ctx, "/rest/api/2/search", params, "issue key search", &page); err != nil {
			return nil, err
		}
		for _, issue := range page.Issues {
			keys = append(keys, issue.Key)
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	c.addToCache(cacheKey, keys, 5*time.Minute)
	return keys, nil
}

func (c *dcClient) GetSprints(ctx context.Context, boardID, startAt int, state string) ([]SprintDTO, error) {
	cacheKey := fmt.Sprintf("sprints:%d:%d:%s", boardID, startAt, state)
	if val, ok := c.getFromCache(cacheKey); ok {
		return val.([]SprintDTO), nil
	}

	path := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", boardID)
	what := fmt.Sprintf("sprints of board %d", boardID)

	var sprints []SprintDTO
	for {
		params := url.Values{}
		params.Set("startAt", strconv.Itoa(startAt))
		if state != "" {
			params.Set("state", state)
		}

		var page SprintPage
		if err := c.getJSON(ctx, path, params, what, &page); err != nil {
			return nil, err
		}
		sprints = append(sprints, page.Values...)

		startAt += len(page.Values)
		if page.IsLast || len(page.Values) == 0 {
			break
		}
	}

	log.Info().Int("board", boardID).Int("count", len(sprints)).Msg("Found sprints")
	c.addToCache(cacheKey, sprints, 5*time.Minute)
	return sprints, nil
}
