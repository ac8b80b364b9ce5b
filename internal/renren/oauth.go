package renren

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"snsapi/internal/model"
)

// DefaultCallbackURL is used when a channel configures none.
const DefaultCallbackURL = "http://graph.renren.com/oauth/login_success.html"

const authState = "snsapi! Stand up, Geeks! Step on the head of those evil platforms!"

// Scopes requested for feed reading, posting and commenting.
var Scopes = []string{"read_user_status", "status_update", "publish_comment"}

// TokenStore persists access tokens per channel.
type TokenStore interface {
	SaveToken(ctx context.Context, channel string, tok model.AccessToken) error
	LoadToken(ctx context.Context, channel string) (model.AccessToken, error)
}

// CodeFetcher presents authURL to the user and returns the callback URL the
// browser landed on after authorization.
type CodeFetcher func(ctx context.Context, authURL string) (string, error)

type OAuthConfig struct {
	Channel     string
	AppKey      string
	AppSecret   string
	CallbackURL string
	// AuthURL and TokenURL default to the Renren graph endpoints.
	AuthURL    string
	TokenURL   string
	HTTPClient *http.Client
}

// OAuth runs the authorization code flow for one channel.
type OAuth struct {
	channel string
	cfg     *oauth2.Config
	store   TokenStore
	hc      *http.Client
	log     *zap.Logger
	nowFn   func() time.Time
}

func NewOAuth(c OAuthConfig, store TokenStore, log *zap.Logger) *OAuth {
	if c.CallbackURL == "" {
		c.CallbackURL = DefaultCallbackURL
	}
	if c.AuthURL == "" {
		c.AuthURL = AuthorizationURL
	}
	if c.TokenURL == "" {
		c.TokenURL = AccessTokenURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OAuth{
		channel: c.Channel,
		cfg: &oauth2.Config{
			ClientID:     c.AppKey,
			ClientSecret: c.AppSecret,
			RedirectURL:  c.CallbackURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   c.AuthURL,
				TokenURL:  c.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store: store,
		hc:    c.HTTPClient,
		log:   log.With(zap.String("channel", c.Channel)),
		nowFn: time.Now,
	}
}

// AuthCodeURL is the page the user opens to grant access.
func (o *OAuth) AuthCodeURL() string {
	return o.cfg.AuthCodeURL(authState)
}

// CodeFromURL extracts the authorization code from a callback URL.
func CodeFromURL(callback string) (string, error) {
	u, err := url.Parse(callback)
	if err != nil {
		return "", fmt.Errorf("parse callback url: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s %s", e, q.Get("error_description"))
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("callback url carries no code")
	}
	return code, nil
}

// Exchange trades an authorization code for an access token. ExpiresIn is
// made absolute from the server TTL at the time of the exchange.
func (o *OAuth) Exchange(ctx context.Context, code string) (model.AccessToken, error) {
	issued := o.nowFn()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.hc)
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("oauth exchange: %w", err)
	}
	out := model.AccessToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Code:         code,
	}
	if ttl, ok := expiresIn(tok.Extra("expires_in")); ok {
		out.ExpiresIn = issued.Unix() + ttl
	} else if !tok.Expiry.IsZero() {
		out.ExpiresIn = tok.Expiry.Unix()
	}
	return out, nil
}

func expiresIn(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Authenticate returns the saved token when it is still valid, otherwise runs
// the code flow through fetch and saves the new token.
func (o *OAuth) Authenticate(ctx context.Context, fetch CodeFetcher) (model.AccessToken, error) {
	if o.store != nil {
		tok, err := o.store.LoadToken(ctx, o.channel)
		if err == nil && !tok.Expired(o.nowFn()) {
			o.log.Debug("using saved token")
			return tok, nil
		}
		if err != nil {
			o.log.Debug("no saved token", zap.Error(err))
		}
	}

	o.log.Info("try to authenticate using OAuth2")
	callback, err := fetch(ctx, o.AuthCodeURL())
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("fetch code: %w", err)
	}
	code, err := CodeFromURL(callback)
	if err != nil {
		return model.AccessToken{}, err
	}
	tok, err := o.Exchange(ctx, code)
	if err != nil {
		return model.AccessToken{}, err
	}
	if o.store != nil {
		if err := o.store.SaveToken(ctx, o.channel, tok); err != nil {
			return tok, fmt.Errorf("save token: %w", err)
		}
	}
	o.log.Info("channel is authorized")
	return tok, nil
}
