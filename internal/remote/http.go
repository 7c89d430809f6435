package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/model"
)

// HTTPConfig configures an HTTPAdapter for a JSONPlaceholder-style posts API.
type HTTPConfig struct {
	BaseURL  string
	Resource string
	UserID   int
	Limit    int
	// Window bounds the random start offset of each fetch.
	Window   int
	Category string
	Timeout  time.Duration
}

// HTTPAdapter talks to a posts API where each post is one quote.
type HTTPAdapter struct {
	cfg      HTTPConfig
	resolver Resolver
	client   Doer
	clock    func() time.Time
}

type post struct {
	ID     json.Number `json:"id"`
	UserID int         `json:"userId"`
	Title  string      `json:"title"`
	Body   string      `json:"body"`
}

type newPost struct {
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type pushBody struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewHTTPAdapter creates an adapter. Zero config fields take the
// JSONPlaceholder defaults.
func NewHTTPAdapter(cfg HTTPConfig, r Resolver, opts ...Option) *HTTPAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://jsonplaceholder.typicode.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Resource == "" {
		cfg.Resource = "/posts"
	}
	if !strings.HasPrefix(cfg.Resource, "/") {
		cfg.Resource = "/" + cfg.Resource
	}
	if cfg.UserID == 0 {
		cfg.UserID = 9
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 5
	}
	if cfg.Category == "" {
		cfg.Category = "Server"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPAdapter{
		cfg:      cfg,
		resolver: r,
		client:   o.client,
		clock:    o.clock,
	}
}

func (a *HTTPAdapter) fetchURL() string {
	q := url.Values{}
	q.Set("userId", strconv.Itoa(a.cfg.UserID))
	q.Set("_limit", strconv.Itoa(a.cfg.Limit))
	q.Set("_start", strconv.Itoa(rand.Intn(a.cfg.Window)))
	return a.cfg.BaseURL + a.cfg.Resource + "?" + q.Encode()
}

// Fetch downloads a page of posts and maps them to quotes. Posts with no
// usable text are dropped.
func (a *HTTPAdapter) Fetch(ctx context.Context) ([]model.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.fetchURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Op: "fetch", Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var posts []post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	now := a.clock()
	quotes := make([]model.Quote, 0, len(posts))
	for _, p := range posts {
		text := strings.TrimSpace(p.Title)
		if text == "" {
			text = strings.TrimSpace(p.Body)
		}
		if text == "" || p.ID == "" {
			logging.Debug("dropping remote post without text", logging.Remote(p.ID.String()))
			continue
		}
		quotes = append(quotes, resolve(a.resolver, "jp-"+p.ID.String(), model.Fields{
			Text:      text,
			Category:  a.cfg.Category,
			UpdatedAt: now,
			Origin:    model.OriginRemote,
		}))
	}
	return quotes, nil
}

// Push creates a post for q. The returned id is taken from the response, or
// is q's existing remote id when the response carries none.
func (a *HTTPAdapter) Push(ctx context.Context, q model.Quote) (string, error) {
	inner, err := json.Marshal(pushBody{
		ID:        q.LocalID,
		Text:      q.Text,
		Category:  q.Category,
		UpdatedAt: q.UpdatedAt,
	})
	if err != nil {
		return "", err
	}
	body, _ := json.Marshal(newPost{UserID: a.cfg.UserID, Title: q.Category, Body: string(inner)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+a.cfg.Resource, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{Op: "push", Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var created post
	if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.ID != "" {
		return "jp-" + created.ID.String(), nil
	}
	return q.RemoteID, nil
}
