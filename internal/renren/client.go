package renren

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"snsapi/internal/metrics"
	"snsapi/internal/rawjson"
)

const (
	AuthorizationURL = "http://graph.renren.com/oauth/authorize"
	AccessTokenURL   = "http://graph.renren.com/oauth/token"
	SessionKeyURL    = "http://graph.renren.com/renren_api/session_key"
	APIServerURL     = "http://api.renren.com/restserver.do"

	apiVersion = "1.0"
	apiFormat  = "json"
)

// Caller issues signed API calls. *Client is the production implementation.
type Caller interface {
	Call(ctx context.Context, params Params) (rawjson.Value, error)
}

// Client signs and sends REST calls on behalf of one authorized channel.
type Client struct {
	apiURL        string
	sessionKeyURL string
	appKey        string
	appSecret     string
	accessToken   string
	httpClient    *http.Client
	limiter       *rate.Limiter
	log           *zap.Logger
	nowFn         func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithEndpoints overrides the API server and session key URLs.
func WithEndpoints(apiURL, sessionKeyURL string) Option {
	return func(c *Client) {
		if apiURL != "" {
			c.apiURL = apiURL
		}
		if sessionKeyURL != "" {
			c.sessionKeyURL = sessionKeyURL
		}
	}
}

func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func WithClock(now func() time.Time) Option { return func(c *Client) { c.nowFn = now } }

func NewClient(appKey, appSecret, accessToken string, opts ...Option) *Client {
	c := &Client{
		apiURL:        APIServerURL,
		sessionKeyURL: SessionKeyURL,
		appKey:        appKey,
		appSecret:     appSecret,
		accessToken:   accessToken,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		limiter:       NewLimiter(0, 0),
		log:           zap.NewNop(),
		nowFn:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetAccessToken swaps the token used for session key requests.
func (c *Client) SetAccessToken(token string) { c.accessToken = token }

// SessionKey exchanges the access token for a short-lived session key.
// Keys are not cached; every call hits the endpoint.
func (c *Client) SessionKey(ctx context.Context) (string, error) {
	q := url.Values{"oauth_token": {c.accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionKeyURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	v, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	sk, err := v.Get("renren_token", "session_key")
	if err != nil {
		return "", fmt.Errorf("session key: %w", err)
	}
	s, err := sk.Text()
	if err != nil {
		return "", fmt.Errorf("session key: %w", err)
	}
	return s, nil
}

// Call fills in the system parameters, signs params in place and posts them
// to the API server. The decoded payload is an array for bulk methods and an
// object otherwise; objects carrying error_code come back as *APIError.
func (c *Client) Call(ctx context.Context, params Params) (rawjson.Value, error) {
	if params == nil {
		params = Params{}
	}
	method := params["method"]
	start := time.Now()
	metrics.APICalls.WithLabelValues(method).Inc()
	defer metrics.ObserveCall(method, start)

	sessionKey, err := c.SessionKey(ctx)
	if err != nil {
		return rawjson.Value{}, err
	}
	params["api_key"] = c.appKey
	params["call_id"] = strconv.FormatInt(c.nowFn().UnixMilli(), 10)
	params["format"] = apiFormat
	params["session_key"] = sessionKey
	params["v"] = apiVersion
	params.Signed(c.appSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return rawjson.Value{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	v, err := c.do(ctx, req)
	if err != nil {
		return rawjson.Value{}, err
	}
	v, err = Classify(c.log, v)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			metrics.APIErrors.WithLabelValues(method, strconv.FormatInt(apiErr.Code, 10)).Inc()
		}
		return v, err
	}
	c.log.Debug("api call", zap.String("method", method), zap.Stringer("kind", v.Kind()))
	return v, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (rawjson.Value, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return rawjson.Value{}, err
	}
	req.Header.Set("Accept", "application/json")
	endpoint := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rawjson.Value{}, &TransportError{Op: req.Method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return rawjson.Value{}, &TransportError{Op: req.Method, URL: endpoint, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}
	v, err := rawjson.Decode(resp.Body)
	if err != nil {
		return rawjson.Value{}, &TransportError{Op: req.Method, URL: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return v, nil
}
