package renren

import (
	"fmt"
	"strings"
	"time"

	"snsapi/internal/model"
	"snsapi/internal/rawjson"
)

// Variant selects how feed items of a channel are read.
type Variant int

const (
	VariantShare Variant = iota + 1
	VariantStatus
)

const (
	PlatformShare  = "RenrenShare"
	PlatformStatus = "RenrenStatus"

	updateTimeLayout = "2006-01-02 15:04:05"
	textSeparator    = " || "
)

// platformZone is the fixed offset of update_time values.
var platformZone = time.FixedZone("+08:00", 8*60*60)

func (v Variant) String() string {
	switch v {
	case VariantShare:
		return "share"
	case VariantStatus:
		return "status"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Platform is the tag written to Message.ID.Platform.
func (v Variant) Platform() string {
	switch v {
	case VariantShare:
		return PlatformShare
	case VariantStatus:
		return PlatformStatus
	default:
		return ""
	}
}

// FeedType is the feed.get type filter of the variant.
func (v Variant) FeedType() string {
	switch v {
	case VariantShare:
		return "21,32,33,50,51,52"
	case VariantStatus:
		return "10"
	default:
		return ""
	}
}

// ParseVariant accepts a platform name (RenrenShare) or short name (share).
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "renrenshare", "share":
		return VariantShare, nil
	case "renrenstatus", "status":
		return VariantStatus, nil
	}
	return 0, fmt.Errorf("unknown renren platform %q", s)
}

// Parse maps one raw feed item with the mapper of variant v.
func Parse(v Variant, raw rawjson.Value) (model.Message, error) {
	switch v {
	case VariantShare:
		return ParseShare(raw)
	case VariantStatus:
		return ParseStatus(raw)
	}
	return model.Message{}, fmt.Errorf("unknown variant %d", int(v))
}

// fields reads required members of one item, keeping the first failure.
type fields struct {
	raw rawjson.Value
	err error
}

func (f *fields) text(path ...any) string {
	if f.err != nil {
		return ""
	}
	v, err := f.raw.Get(path...)
	if err != nil {
		f.err = err
		return ""
	}
	s, err := v.Text()
	if err != nil {
		f.err = err
	}
	return s
}

func (f *fields) count(path ...any) int {
	if f.err != nil {
		return 0
	}
	v, err := f.raw.Get(path...)
	if err != nil {
		f.err = err
		return 0
	}
	n, err := v.Int()
	if err != nil {
		f.err = err
	}
	return int(n)
}

func (f *fields) utc(path ...any) time.Time {
	s := f.text(path...)
	if f.err != nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(updateTimeLayout, strings.TrimSpace(s), platformZone)
	if err != nil {
		f.err = fmt.Errorf("update_time: %w", err)
		return time.Time{}
	}
	return t.UTC()
}

// ParseShare maps a shared-content item. Every field is required.
func ParseShare(raw rawjson.Value) (model.Message, error) {
	f := &fields{raw: raw}
	m := model.Message{
		ID: model.StatusID{
			Platform:     PlatformShare,
			StatusID:     f.text("source_id"),
			SourceUserID: f.text("actor_id"),
		},
		UserID:        f.text("actor_id"),
		Username:      f.text("name"),
		Time:          f.utc("update_time"),
		TextOrig:      f.text("description"),
		TextLast:      f.text("message"),
		TextTrace:     f.text("trace", "text"),
		Title:         f.text("title"),
		Description:   f.text("description"),
		RepostsCount:  model.NotAvailable,
		CommentsCount: f.count("comments", "count"),
	}
	if f.err != nil {
		return model.Message{}, fmt.Errorf("parse share item: %w", f.err)
	}
	m.Text = m.TextTrace + textSeparator + m.Title + textSeparator + m.Description
	return m, nil
}

// ParseStatus maps a status update item. The attachment block is optional;
// when it cannot be read the message text stays as posted.
func ParseStatus(raw rawjson.Value) (model.Message, error) {
	f := &fields{raw: raw}
	m := model.Message{
		ID: model.StatusID{
			Platform:     PlatformStatus,
			StatusID:     f.text("source_id"),
			SourceUserID: f.text("actor_id"),
		},
		UserID:        f.text("actor_id"),
		Username:      f.text("name"),
		Time:          f.utc("update_time"),
		Text:          f.text("message"),
		RepostsCount:  model.NotAvailable,
		CommentsCount: f.count("comments", "count"),
	}
	if f.err != nil {
		return model.Message{}, fmt.Errorf("parse status item: %w", f.err)
	}
	m.TextTrace = m.Text
	if a, ok := tryExtractAttachment(raw); ok {
		m.UsernameOrig = a.ownerName
		m.TextOrig = a.content
		m.Text += textSeparator + "@" + a.ownerName + " : " + a.content
	}
	return m, nil
}

type attachment struct {
	ownerName string
	content   string
}

// tryExtractAttachment reads attachment[0].owner_name and .content. Any
// shape problem means no attachment.
func tryExtractAttachment(raw rawjson.Value) (attachment, bool) {
	first, err := raw.Get("attachment", 0)
	if err != nil {
		return attachment{}, false
	}
	f := &fields{raw: first}
	a := attachment{ownerName: f.text("owner_name"), content: f.text("content")}
	if f.err != nil {
		return attachment{}, false
	}
	return a, true
}
