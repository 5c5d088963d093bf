package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ErrNotFound is returned when the API has no video for the id.
var ErrNotFound = errors.New("video not found")

// Metadata is the subset of a video resource the pipeline uses.
type Metadata struct {
	VideoID  string
	Views    int64
	Duration string // ISO-8601, e.g. "PT2M33S"; empty when absent.
}

// Client performs single-video lookups. Safe for sequential use; the
// pipeline never issues concurrent lookups.
type Client struct {
	svc     *yt.Service
	timeout time.Duration
}

type clientOptions struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

// Option customizes a Client.
type Option func(*clientOptions)

// WithEndpoint overrides the API base URL. Used by tests and proxies.
func WithEndpoint(url string) Option {
	return func(o *clientOptions) { o.endpoint = url }
}

// WithHTTPClient sends requests through c. The client is used as-is, so the
// API key is not attached; intended for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout bounds every Lookup. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// NewClient builds a client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, fn := range opts {
		fn(&o)
	}

	copts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if o.endpoint != "" {
		copts = append(copts, option.WithEndpoint(o.endpoint))
	}
	if o.httpClient != nil {
		copts = append(copts, option.WithHTTPClient(o.httpClient))
	}

	svc, err := yt.NewService(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{svc: svc, timeout: o.timeout}, nil
}

// Lookup fetches the view count and duration of one video.
func (c *Client) Lookup(ctx context.Context, id string) (Metadata, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.svc.Videos.List([]string{"statistics", "contentDetails"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return Metadata{}, fmt.Errorf("videos.list %q: %w", id, err)
	}
	if len(resp.Items) == 0 {
		return Metadata{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return convertVideo(id, resp.Items[0]), nil
}

func convertVideo(id string, v *yt.Video) Metadata {
	md := Metadata{VideoID: id}
	if v.Statistics != nil {
		md.Views = int64(v.Statistics.ViewCount)
	}
	if v.ContentDetails != nil {
		md.Duration = v.ContentDetails.Duration
	}
	return md
}
