package renren

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snsapi/internal/model"
)

type memStore struct {
	tokens map[string]model.AccessToken
	saves  int
}

func (m *memStore) SaveToken(ctx context.Context, channel string, tok model.AccessToken) error {
	if m.tokens == nil {
		m.tokens = map[string]model.AccessToken{}
	}
	m.tokens[channel] = tok
	m.saves++
	return nil
}

func (m *memStore) LoadToken(ctx context.Context, channel string) (model.AccessToken, error) {
	tok, ok := m.tokens[channel]
	if !ok {
		return model.AccessToken{}, errors.New("not found")
	}
	return tok, nil
}

func newTokenServer(t *testing.T) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "app-key", r.PostForm.Get("client_id"))
		assert.Equal(t, "app-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "http://cb.example/done", r.PostForm.Get("redirect_uri"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    2592000,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestOAuth(t *testing.T, store TokenStore) *OAuth {
	ts := newTokenServer(t)
	o := NewOAuth(OAuthConfig{
		Channel:     "rr",
		AppKey:      "app-key",
		AppSecret:   "app-secret",
		CallbackURL: "http://cb.example/done",
		AuthURL:     "http://auth.example/authorize",
		TokenURL:    ts.URL,
		HTTPClient:  ts.Client(),
	}, store, nil)
	o.nowFn = func() time.Time { return time.Unix(1000, 0) }
	return o
}

func TestAuthCodeURL(t *testing.T) {
	o := newTestOAuth(t, nil)
	u, err := url.Parse(o.AuthCodeURL())
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "auth.example", u.Host)
	assert.Equal(t, "app-key", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "read_user_status status_update publish_comment", q.Get("scope"))
	assert.Equal(t, "http://cb.example/done", q.Get("redirect_uri"))
	assert.Equal(t, authState, q.Get("state"))
}

func TestCodeFromURL(t *testing.T) {
	code, err := CodeFromURL("http://cb.example/done?code=abc&state=x")
	require.NoError(t, err)
	assert.Equal(t, "abc", code)

	_, err = CodeFromURL("http://cb.example/done?error=access_denied")
	assert.Error(t, err)
	_, err = CodeFromURL("http://cb.example/done")
	assert.Error(t, err)
}

func TestExchangeMakesExpiryAbsolute(t *testing.T) {
	o := newTestOAuth(t, nil)
	tok, err := o.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.Equal(t, "the-code", tok.Code)
	assert.Equal(t, int64(1000+2592000), tok.ExpiresIn)
}

func TestAuthenticateUsesSavedToken(t *testing.T) {
	store := &memStore{tokens: map[string]model.AccessToken{
		"rr": {AccessToken: "saved", ExpiresIn: 5000},
	}}
	o := newTestOAuth(t, store)
	tok, err := o.Authenticate(context.Background(), func(ctx context.Context, authURL string) (string, error) {
		t.Fatal("fetch must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "saved", tok.AccessToken)
	assert.Equal(t, 0, store.saves)
}

func TestAuthenticateRunsFlowWhenExpired(t *testing.T) {
	store := &memStore{tokens: map[string]model.AccessToken{
		"rr": {AccessToken: "old", ExpiresIn: 999},
	}}
	o := newTestOAuth(t, store)
	var shown string
	tok, err := o.Authenticate(context.Background(), func(ctx context.Context, authURL string) (string, error) {
		shown = authURL
		return "http://cb.example/done?code=the-code", nil
	})
	require.NoError(t, err)
	assert.Equal(t, o.AuthCodeURL(), shown)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "at-1", store.tokens["rr"].AccessToken)
}

func TestAuthenticateFetchError(t *testing.T) {
	o := newTestOAuth(t, &memStore{})
	_, err := o.Authenticate(context.Background(), func(ctx context.Context, authURL string) (string, error) {
		return "", errors.New("user gave up")
	})
	assert.Error(t, err)
}
