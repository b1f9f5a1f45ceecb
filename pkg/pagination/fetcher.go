package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrTooManyPages is returned when a listing exceeds Config.MaxPages.
var ErrTooManyPages = errors.New("page limit exceeded")

var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_pages_fetched_total",
		Help: "Total pages decoded by resource",
	}, []string{"resource"})

	itemsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_items_fetched_total",
		Help: "Total JSON elements accumulated by resource",
	}, []string{"resource"})
)

// Config holds fetcher configuration.
type Config struct {
	// PerPage is sent as per_page on the first request. Canvas caps it at 100.
	PerPage int

	// MaxPages stops runaway link chains. 0 means unlimited.
	MaxPages int
}

// DefaultConfig returns the configuration used for all Canvas listings.
func DefaultConfig() Config {
	return Config{
		PerPage:  100,
		MaxPages: 0,
	}
}

// Requester issues a GET. *client.Session implements it.
type Requester interface {
	Get(ctx context.Context, rawURL string, query url.Values) (*http.Response, error)
}

// ErrorMapper turns a non-2xx status and its body into an error.
type ErrorMapper func(statusCode int, body string) error

// Request describes one paginated listing.
type Request struct {
	// Resource labels logs and metrics ("courses", "users", ...).
	Resource string

	// URL is the first page.
	URL string

	// Query holds resource-specific parameters such as include[].
	Query url.Values

	// MapError maps non-2xx answers. Nil yields a generic *client.APIError.
	MapError ErrorMapper
}

// Fetcher follows next links and accumulates the elements of every page.
type Fetcher struct {
	requester Requester
	config    Config
	logger    zerolog.Logger
}

// NewFetcher creates a new fetcher.
func NewFetcher(requester Requester, config Config) *Fetcher {
	if config.PerPage <= 0 {
		config.PerPage = 100
	}

	return &Fetcher{
		requester: requester,
		config:    config,
		logger:    log.With().Str("component", "canvas-pagination").Logger(),
	}
}

// FetchAll returns the raw elements of every page, in page order.
func (f *Fetcher) FetchAll(ctx context.Context, req Request) ([]json.RawMessage, error) {
	start := time.Now()

	query := url.Values{}
	for key, values := range req.Query {
		query[key] = append([]string(nil), values...)
	}
	query.Set("per_page", strconv.Itoa(f.config.PerPage))

	var (
		items []json.RawMessage
		pages int
		next  = req.URL
	)

	for next != "" {
		if f.config.MaxPages > 0 && pages >= f.config.MaxPages {
			return nil, fmt.Errorf("%w: %s stopped after %d pages", ErrTooManyPages, req.Resource, pages)
		}

		page, link, err := f.fetchPage(ctx, next, query, req)
		if err != nil {
			return nil, err
		}

		items = append(items, page...)
		pages++
		pagesFetched.WithLabelValues(req.Resource).Inc()
		itemsFetched.WithLabelValues(req.Resource).Add(float64(len(page)))

		f.logger.Debug().
			Str("resource", req.Resource).
			Int("page", pages).
			Int("items", len(page)).
			Bool("has_next", link != "").
			Msg("Page fetched")

		// The next link already embeds the original parameters.
		next = link
		query = nil
	}

	f.logger.Debug().
		Str("resource", req.Resource).
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string, query url.Values, req Request) ([]json.RawMessage, string, error) {
	resp, err := f.requester.Get(ctx, pageURL, query)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", req.Resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := client.ReadErrorBody(resp)
		if req.MapError != nil {
			return nil, "", req.MapError(resp.StatusCode, body)
		}
		return nil, "", client.NewAPIError(resp.StatusCode, body)
	}

	var page []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decode %s page: %w", req.Resource, err)
	}

	next, _ := NextLink(resp.Header)
	return page, next, nil
}
