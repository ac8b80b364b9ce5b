package renren

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"snsapi/internal/metrics"
	"snsapi/internal/model"
	"snsapi/internal/rawjson"
)

// Channel is one configured Renren feed, read and written through a Caller.
type Channel struct {
	name    string
	variant Variant
	api     Caller
	log     *zap.Logger
}

func NewChannel(name string, variant Variant, api Caller, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{
		name:    name,
		variant: variant,
		api:     api,
		log:     log.With(zap.String("channel", name), zap.String("platform", variant.Platform())),
	}
}

func (ch *Channel) Name() string     { return ch.name }
func (ch *Channel) Variant() Variant { return ch.variant }
func (ch *Channel) Platform() string { return ch.variant.Platform() }

// HomeTimeline returns up to count items of the home feed. Items are read in
// order and the first one that cannot be parsed ends the read; the messages
// before it are returned.
func (ch *Channel) HomeTimeline(ctx context.Context, count int) ([]model.Message, error) {
	params := Params{
		"method": "feed.get",
		"type":   ch.variant.FeedType(),
		"page":   "1",
		"count":  strconv.Itoa(count),
	}
	payload, err := ch.api.Call(ctx, params)
	if err != nil {
		return nil, err
	}

	var out []model.Message
	items, err := payload.Array()
	if err != nil {
		ch.log.Warn("unexpected feed payload", zap.Error(err))
		items = nil
	}
	for _, item := range items {
		m, err := Parse(ch.variant, item)
		if err != nil {
			metrics.ParseFailures.WithLabelValues(ch.variant.String()).Inc()
			ch.log.Warn("feed item parse failed", zap.Error(err))
			break
		}
		m.Channel = ch.name
		out = append(out, m)
	}
	metrics.MessagesParsed.WithLabelValues(ch.variant.String()).Add(float64(len(out)))
	ch.log.Info("read statuses", zap.Int("count", len(out)))
	return out, nil
}

// Update posts a new status. Only status channels support it.
func (ch *Channel) Update(ctx context.Context, text string) bool {
	if ch.variant != VariantStatus {
		ch.log.Info("update not supported", zap.String("text", text))
		return false
	}
	ok := ch.mutate(ctx, Params{"method": "status.set", "status": text})
	if ok {
		ch.log.Info("update status succeed", zap.String("text", text))
	} else {
		ch.log.Info("update status fail", zap.String("text", text))
	}
	return ok
}

// Reply comments on the item identified by id.
func (ch *Channel) Reply(ctx context.Context, id model.StatusID, text string) bool {
	var params Params
	switch ch.variant {
	case VariantShare:
		params = Params{"method": "share.addComment", "content": text, "share_id": id.StatusID, "user_id": id.SourceUserID}
	case VariantStatus:
		params = Params{"method": "status.addComment", "content": text, "status_id": id.StatusID, "owner_id": id.SourceUserID}
	default:
		return false
	}
	ok := ch.mutate(ctx, params)
	if ok {
		ch.log.Info("reply succeed", zap.String("text", text), zap.Stringer("status", id))
	} else {
		ch.log.Info("reply fail", zap.String("text", text), zap.Stringer("status", id))
	}
	return ok
}

// mutate reports success only for an object whose result is the integer 1.
// Errors are logged and folded into false.
func (ch *Channel) mutate(ctx context.Context, params Params) bool {
	ret, err := ch.api.Call(ctx, params)
	if err != nil {
		ch.log.Info("call failed", zap.String("method", params["method"]), zap.Error(err))
		return false
	}
	return resultOK(ret)
}

func resultOK(ret rawjson.Value) bool {
	if !ret.IsObject() {
		return false
	}
	r, err := ret.Field("result")
	return err == nil && r.IsInt(1)
}
