package model

import "time"

// NotAvailable marks counters the platform does not report.
const NotAvailable = "N/A"

// StatusID identifies a message for reply operations.
type StatusID struct {
	Platform     string `json:"platform"`
	StatusID     string `json:"status_id"`
	SourceUserID string `json:"source_user_id"`
}

func (id StatusID) String() string {
	return id.Platform + ":" + id.StatusID + "@" + id.SourceUserID
}

// Message is a feed item normalized across platforms.
type Message struct {
	ID      StatusID `json:"id"`
	Channel string   `json:"channel"`

	UserID       string    `json:"userid"`
	Username     string    `json:"username"`
	UsernameOrig string    `json:"username_orig,omitempty"`
	Time         time.Time `json:"time"`

	// Text is the display string; it may join several of the fields below.
	Text        string `json:"text"`
	TextOrig    string `json:"text_orig,omitempty"`
	TextLast    string `json:"text_last,omitempty"`
	TextTrace   string `json:"text_trace,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	RepostsCount  string `json:"reposts_count"`
	CommentsCount int    `json:"comments_count"`
}

// Platform returns the source tag of the message.
func (m Message) Platform() string { return m.ID.Platform }

// AccessToken is the long-lived OAuth2 credential of a channel.
type AccessToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	// Code is the authorization code exchanged for AccessToken.
	Code string `json:"code,omitempty"`
	// ExpiresIn is an absolute Unix time in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// Expired reports whether the token is unusable at now. A zero ExpiresIn
// means the server gave no TTL.
func (t AccessToken) Expired(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	return t.ExpiresIn > 0 && now.Unix() >= t.ExpiresIn
}
