package refdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTP fetches option lists from GET {baseURL}/options/{key}. Lists are
// cached for the lifetime of the provider. When the service fails the
// fallback provider answers and nothing is cached. Uncached lookups are
// rate limited; lookups over the limit are answered by the fallback.
type HTTP struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	cache    sync.Map
	fallback *Static
	log      zerolog.Logger
}

var errRateLimited = errors.New("reference data lookups rate limited")

type optionsResponse struct {
	Key     string   `json:"key"`
	Options []string `json:"options"`
}

func NewHTTP(baseURL string, fallback *Static, log zerolog.Logger) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  rate.NewLimiter(rate.Limit(20), 10),
		fallback: fallback,
		log:      log.With().Str("component", "refdata").Logger(),
	}
}

func (h *HTTP) Options(ctx context.Context, key string) ([]string, error) {
	if opts, ok := h.cache.Load(key); ok {
		return clone(opts.([]string)), nil
	}

	opts, err := h.fetch(ctx, key)
	if err != nil {
		if h.fallback == nil {
			return nil, err
		}
		h.log.Warn().Err(err).Str("key", key).Msg("reference data service failed, using fallback")
		return h.fallback.Options(ctx, key)
	}

	h.cache.Store(key, opts)
	return clone(opts), nil
}

func (h *HTTP) fetch(ctx context.Context, key string) ([]string, error) {
	if !h.limiter.Allow() {
		return nil, errRateLimited
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/options/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: status %d", key, resp.StatusCode)
	}

	var or optionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return or.Options, nil
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
