package renren

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"snsapi/internal/rawjson"
)

type fakeRenren struct {
	sessionCalls atomic.Int32
	mu           sync.Mutex
	form         map[string]string
	sessionBody  string
	apiBody      string
	apiStatus    int
}

func (f *fakeRenren) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/renren_api/session_key", func(w http.ResponseWriter, r *http.Request) {
		f.sessionCalls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "access-1", r.URL.Query().Get("oauth_token"))
		body := f.sessionBody
		if body == "" {
			body = `{"renren_token":{"session_key":"sk-1","expires_in":3600}}`
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/restserver.do", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.mu.Lock()
		f.form = form
		f.mu.Unlock()
		if f.apiStatus != 0 {
			w.WriteHeader(f.apiStatus)
		}
		_, _ = w.Write([]byte(f.apiBody))
	})
	return mux
}

func (f *fakeRenren) lastForm() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

func newTestClient(t *testing.T, f *fakeRenren) *Client {
	t.Helper()
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)
	clock := func() time.Time { return time.UnixMilli(1357000000123) }
	return NewClient("app-key", "app-secret", "access-1",
		WithHTTPClient(ts.Client()),
		WithEndpoints(ts.URL+"/restserver.do", ts.URL+"/renren_api/session_key"),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithClock(clock),
	)
}

func TestCallFillsSystemFieldsAndSigns(t *testing.T) {
	f := &fakeRenren{apiBody: `{"result":1}`}
	c := newTestClient(t, f)

	params := Params{"method": "status.set", "status": "hello"}
	v, err := c.Call(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, v.IsObject())

	form := f.lastForm()
	assert.Equal(t, "app-key", form["api_key"])
	assert.Equal(t, "1357000000123", form["call_id"])
	assert.Equal(t, "json", form["format"])
	assert.Equal(t, "sk-1", form["session_key"])
	assert.Equal(t, "1.0", form["v"])
	assert.Equal(t, "status.set", form["method"])
	assert.Equal(t, "hello", form["status"])

	unsigned := Params{}
	for k, v := range form {
		if k != SigKey {
			unsigned[k] = v
		}
	}
	assert.Equal(t, Sign(unsigned, "app-secret"), form[SigKey])
	// the caller's params carry the same signed state
	assert.Equal(t, form[SigKey], params[SigKey])
}

func TestCallReplacesStaleSignature(t *testing.T) {
	f := &fakeRenren{apiBody: `{"result":1}`}
	c := newTestClient(t, f)

	params := Params{"method": "status.set", "status": "x", SigKey: "stale"}
	_, err := c.Call(context.Background(), params)
	require.NoError(t, err)
	first := f.lastForm()[SigKey]
	assert.NotEqual(t, "stale", first)

	_, err = c.Call(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, first, f.lastForm()[SigKey])
}

func TestCallFetchesSessionKeyEveryTime(t *testing.T) {
	f := &fakeRenren{apiBody: `[]`}
	c := newTestClient(t, f)

	for i := 0; i < 3; i++ {
		_, err := c.Call(context.Background(), Params{"method": "feed.get"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), f.sessionCalls.Load())
}

func TestCallReturnsAPIError(t *testing.T) {
	f := &fakeRenren{apiBody: `{"error_code":10600,"error_msg":"status too long"}`}
	c := newTestClient(t, f)

	_, err := c.Call(context.Background(), Params{"method": "status.set", "status": "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, int64(10600), apiErr.Code)
	assert.Equal(t, "status too long", apiErr.Message)
}

func TestCallListIsSuccessEvenWithErrorShapes(t *testing.T) {
	f := &fakeRenren{apiBody: `[{"error_code":1,"error_msg":"x"}]`}
	c := newTestClient(t, f)

	v, err := c.Call(context.Background(), Params{"method": "feed.get"})
	require.NoError(t, err)
	assert.True(t, v.IsArray())
}

func TestSessionKeyMissingIsStructuralError(t *testing.T) {
	f := &fakeRenren{sessionBody: `{"renren_token":{}}`, apiBody: `[]`}
	c := newTestClient(t, f)

	_, err := c.Call(context.Background(), Params{"method": "feed.get"})
	assert.True(t, errors.Is(err, rawjson.ErrMissingField))
	assert.Nil(t, f.lastForm())
}

func TestSessionKeyNumericIsStringified(t *testing.T) {
	f := &fakeRenren{sessionBody: `{"renren_token":{"session_key":123456}}`}
	c := newTestClient(t, f)

	sk, err := c.SessionKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456", sk)
}

func TestCallTransportErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		f := &fakeRenren{apiBody: "boom", apiStatus: http.StatusBadGateway}
		c := newTestClient(t, f)
		_, err := c.Call(context.Background(), Params{"method": "feed.get"})
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, http.StatusBadGateway, te.Status)
	})
	t.Run("undecodable body", func(t *testing.T) {
		f := &fakeRenren{apiBody: "<html>"}
		c := newTestClient(t, f)
		_, err := c.Call(context.Background(), Params{"method": "feed.get"})
		var te *TransportError
		require.True(t, errors.As(err, &te))
	})
	t.Run("connection refused", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()
		c := NewClient("k", "s", "t", WithEndpoints(url+"/api", url+"/sk"), WithLimiter(rate.NewLimiter(rate.Inf, 1)))
		_, err := c.Call(context.Background(), Params{"method": "feed.get"})
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, http.MethodGet, te.Op)
	})
}

func TestCallHonoursContextWhileRateLimited(t *testing.T) {
	f := &fakeRenren{apiBody: `[]`}
	c := newTestClient(t, f)
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Call(ctx, Params{"method": "feed.get"})
	assert.Error(t, err)
	assert.Equal(t, int32(0), f.sessionCalls.Load())
}

func TestNewLimiterDefaults(t *testing.T) {
	l := NewLimiter(0, -1)
	assert.Equal(t, rate.Limit(2), l.Limit())
	assert.Equal(t, 10, l.Burst())

	l = NewLimiter(5, 3)
	assert.Equal(t, rate.Limit(5), l.Limit())
	assert.Equal(t, 3, l.Burst())
}
