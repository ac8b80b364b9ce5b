package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"snsapi/internal/config"
	"snsapi/internal/logging"
	"snsapi/internal/renren"
	"snsapi/internal/store"
)

var timeNow = time.Now

// app holds what every channel command needs.
type app struct {
	cfg     config.Config
	chCfg   config.Channel
	log     *zap.Logger
	db      *store.DB
	client  *renren.Client
	channel *renren.Channel
}

// loadApp reads config, opens the logger and the database. The channel is
// left unset; see authorized.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	chCfg, err := cfg.Channel(channelName)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{cfg: cfg, chCfg: chCfg, log: log, db: db}, nil
}

// authorized builds the API client and channel from the saved token.
func (a *app) authorized(ctx context.Context) error {
	variant, err := renren.ParseVariant(a.chCfg.Platform)
	if err != nil {
		return err
	}
	tok, err := a.db.LoadToken(ctx, a.chCfg.ChannelName)
	if errors.Is(err, store.ErrTokenNotFound) {
		return fmt.Errorf("channel %q is not authorized; run `snsapi auth` first", a.chCfg.ChannelName)
	}
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if tok.Expired(timeNow()) {
		return fmt.Errorf("token of channel %q expired; run `snsapi auth` again", a.chCfg.ChannelName)
	}

	a.client = renren.NewClient(a.chCfg.AppKey, a.chCfg.AppSecret, tok.AccessToken,
		renren.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}),
		renren.WithEndpoints(a.cfg.API.ServerURL, a.cfg.API.SessionKeyURL),
		renren.WithLimiter(renren.NewLimiter(a.cfg.API.RPS, a.cfg.API.Burst)),
		renren.WithLogger(a.log),
	)
	a.channel = renren.NewChannel(a.chCfg.ChannelName, variant, a.client, a.log)
	return nil
}

func (a *app) Close() {
	_ = a.db.Close()
	_ = a.log.Sync()
}
