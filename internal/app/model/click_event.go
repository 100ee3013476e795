package model

import "time"

// ClickEvent represents a click event on a short link
type ClickEvent struct {
	ID        string    `json:"id"`
	LinkCode  string    `json:"link_code"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	Device    string    `json:"device,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
