// Package discovery searches YouTube for candidate long-form source videos.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Video is one candidate source video returned by search.
type Video struct {
	ID           string
	Title        string
	Description  string
	ChannelTitle string
	PublishedAt  string
}

// Searcher defines the discovery operation the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Video, error)
}

// Client provides access to the YouTube Data API search endpoint.
type Client struct {
	apiKey             string
	baseURL            string
	httpClient         *http.Client
	minDurationSeconds int
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMinDuration drops search results whose runtime is below the given
// number of seconds. Zero disables the filter.
func WithMinDuration(seconds int) Option {
	return func(c *Client) {
		c.minDurationSeconds = seconds
	}
}

// New creates a YouTube search client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("youtube api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("youtube base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search queries the search endpoint for long-form videos matching the topic
// query. Results are deduplicated by video id, preserving first occurrence.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query required")
	}
	if maxResults <= 0 {
		maxResults = 25
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoDuration", "long")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("key", c.apiKey)

	endpoint := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: unexpected status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	seen := make(map[string]struct{}, len(payload.Items))
	videos := make([]Video, 0, len(payload.Items))
	for _, item := range payload.Items {
		id := strings.TrimSpace(item.ID.VideoID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		videos = append(videos, Video{
			ID:           id,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	if c.minDurationSeconds > 0 && len(videos) > 0 {
		return c.filterShortVideos(ctx, videos)
	}
	return videos, nil
}

type videosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// filterShortVideos looks up each candidate's runtime through the videos
// endpoint and drops those below the configured minimum. The search endpoint's
// videoDuration=long filter only guarantees >20 minutes buckets, so this is
// the authoritative check. Candidates whose duration the API fails to report
// or to encode sensibly are kept.
func (c *Client) filterShortVideos(ctx context.Context, videos []Video) ([]Video, error) {
	ids := make([]string, 0, len(videos))
	for _, video := range videos {
		ids = append(ids, video.ID)
	}

	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", c.apiKey)

	endpoint := c.baseURL + "/videos?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build videos request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("videos request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("videos request: unexpected status %d", resp.StatusCode)
	}

	var payload videosResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode videos response: %w", err)
	}

	durations := make(map[string]int, len(payload.Items))
	for _, item := range payload.Items {
		seconds, err := parseISODuration(item.ContentDetails.Duration)
		if err != nil {
			continue
		}
		durations[item.ID] = seconds
	}

	kept := videos[:0]
	for _, video := range videos {
		if seconds, ok := durations[video.ID]; ok && seconds < c.minDurationSeconds {
			continue
		}
		kept = append(kept, video)
	}
	return kept, nil
}

// parseISODuration converts an ISO-8601 duration such as PT1H23M45S into
// seconds. The Data API never reports components above weeks.
func parseISODuration(value string) (int, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "P") {
		return 0, fmt.Errorf("malformed duration %q", value)
	}
	datePart, timePart, _ := strings.Cut(value[1:], "T")

	total := 0
	parse := func(part string, units map[byte]int) error {
		num := 0
		digits := false
		for i := 0; i < len(part); i++ {
			ch := part[i]
			if ch >= '0' && ch <= '9' {
				num = num*10 + int(ch-'0')
				digits = true
				continue
			}
			mult, ok := units[ch]
			if !ok || !digits {
				return fmt.Errorf("malformed duration %q", value)
			}
			total += num * mult
			num = 0
			digits = false
		}
		if digits {
			return fmt.Errorf("malformed duration %q", value)
		}
		return nil
	}
	if err := parse(datePart, map[byte]int{'W': 604800, 'D': 86400}); err != nil {
		return 0, err
	}
	if err := parse(timePart, map[byte]int{'H': 3600, 'M': 60, 'S': 1}); err != nil {
		return 0, err
	}
	return total, nil
}
