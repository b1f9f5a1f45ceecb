// Package client provides the Canvas LMS session: configuration, the identity
// probe, authenticated request execution and the error taxonomy shared by the
// resource packages.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_requests_total",
		Help: "Total Canvas API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_request_duration_seconds",
		Help:    "Canvas API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_errors_total",
		Help: "Total Canvas API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIPrefix is prepended to every resource path.
const APIPrefix = "/api/v1"

// DefaultTimezone is used when Config.Timezone is empty.
const DefaultTimezone = "UTC"

// Config holds the session configuration.
type Config struct {
	// Token is the Canvas API access token (sent as a bearer token).
	Token string

	// BaseURL is the Canvas instance, e.g. "https://canvas.instructure.com".
	BaseURL string

	// Timezone is an IANA zone name used for datetime conversion.
	Timezone string

	// VerifyConnection runs the identity probe in New.
	VerifyConnection bool

	// Timeout bounds each HTTP request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// UserAgent is sent with every request when non-empty.
	UserAgent string

	// HTTPClient overrides the default transport (custom TLS, proxies, tests).
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration that verifies the token and uses UTC.
func DefaultConfig(token, baseURL string) Config {
	return Config{
		Token:            token,
		BaseURL:          baseURL,
		Timezone:         DefaultTimezone,
		VerifyConnection: true,
		Timeout:          30 * time.Second,
		UserAgent:        "canvas-lms-client/0.1.0",
	}
}

// Identity is the authenticated caller as reported by /users/self.
type Identity struct {
	ID   int64
	Name string
}

// IsZero reports whether the identity was never resolved.
func (i Identity) IsZero() bool {
	return i.ID == 0 && i.Name == ""
}

// Builder holds a validated configuration that has not yet been bound to a
// caller identity. Verify turns it into a Session.
type Builder struct {
	baseURL    string
	authHeader string
	userAgent  string
	location   *time.Location
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewBuilder validates cfg and prepares the transport.
func NewBuilder(cfg Config) (*Builder, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("api token is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Builder{
		baseURL:    baseURL,
		authHeader: "Bearer " + cfg.Token,
		userAgent:  cfg.UserAgent,
		location:   loc,
		httpClient: httpClient,
		logger:     log.With().Str("component", "canvas-client").Logger(),
	}, nil
}

// Verify probes /users/self and returns a Session bound to the caller.
func (b *Builder) Verify(ctx context.Context) (*Session, error) {
	identity, err := b.session(Identity{}).probe(ctx)
	if err != nil {
		return nil, err
	}
	return b.session(identity), nil
}

// Unverified returns a Session without a caller identity. Views that exclude
// the caller fall back to no exclusion.
func (b *Builder) Unverified() *Session {
	return b.session(Identity{})
}

func (b *Builder) session(identity Identity) *Session {
	return &Session{
		baseURL:    b.baseURL,
		authHeader: b.authHeader,
		userAgent:  b.userAgent,
		location:   b.location,
		httpClient: b.httpClient,
		identity:   identity,
		logger:     b.logger,
		now:        time.Now,
	}
}

// New builds a Session, running the identity probe when cfg.VerifyConnection is set.
func New(ctx context.Context, cfg Config) (*Session, error) {
	b, err := NewBuilder(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.VerifyConnection {
		return b.Unverified(), nil
	}
	return b.Verify(ctx)
}

// Session is an immutable, authenticated handle on one Canvas instance.
// It is safe for concurrent use.
type Session struct {
	baseURL    string
	authHeader string
	userAgent  string
	location   *time.Location
	httpClient *http.Client
	identity   Identity
	logger     zerolog.Logger
	now        func() time.Time
}

// BaseURL returns the normalized instance URL (no trailing slash).
func (s *Session) BaseURL() string { return s.baseURL }

// Location returns the configured timezone.
func (s *Session) Location() *time.Location { return s.location }

// Identity returns the caller resolved by the probe (zero when unverified).
func (s *Session) Identity() Identity { return s.identity }

// Now returns the current time in the session timezone.
func (s *Session) Now() time.Time { return s.now().In(s.location) }

// String describes the session without exposing the token.
func (s *Session) String() string {
	return fmt.Sprintf("Session(url=%s, user=%s, user_id=%d)", s.baseURL, s.identity.Name, s.identity.ID)
}

// URL joins path segments under the API prefix.
func (s *Session) URL(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return s.baseURL + APIPrefix + "/" + strings.Join(escaped, "/")
}

// CourseURL builds {base}/api/v1/courses/{id}/{rest...}.
func (s *Session) CourseURL(courseID int64, rest ...string) string {
	return s.URL(append([]string{"courses", strconv.FormatInt(courseID, 10)}, rest...)...)
}

// Get performs an authenticated GET. A nil query leaves rawURL's own query
// untouched, which is how pagination links are followed.
func (s *Session) Get(ctx context.Context, rawURL string, query url.Values) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		merged := u.Query()
		for key, values := range query {
			merged[key] = append(merged[key], values...)
		}
		u.RawQuery = merged.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return s.Do(req)
}

// Do executes req with authentication headers and records metrics. Non-2xx
// responses are returned as-is; status mapping is resource specific.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	endpoint := EndpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("Authorization", s.authHeader)
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if class := ClassifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		s.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("API request error")
	} else {
		s.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(startTime)).
			Msg("API request complete")
	}

	return resp, nil
}

// probe resolves the caller via /users/self.
func (s *Session) probe(ctx context.Context) (Identity, error) {
	resp, err := s.Get(ctx, s.URL("users", "self"), nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Identity probe failed")
		return Identity{}, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.logger.Error().Int("status", resp.StatusCode).Msg("Authentication failed")
		return Identity{}, &AuthenticationError{StatusCode: resp.StatusCode, Detail: ReadErrorBody(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error().Int("status", resp.StatusCode).Msg("Identity probe rejected")
		return Identity{}, &ConnectionError{StatusCode: resp.StatusCode, Detail: ReadErrorBody(resp)}
	}

	var user struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return Identity{}, &ConnectionError{StatusCode: resp.StatusCode, Detail: "decode identity", Err: err}
	}

	s.logger.Info().Str("user", user.Name).Int64("user_id", user.ID).Msg("Connected")

	return Identity{ID: user.ID, Name: user.Name}, nil
}

// EndpointLabel reduces a request path to a low-cardinality metric label by
// replacing numeric segments with ":id".
func EndpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
