package model

import "time"

// Link describes the core short-link entity stored in Postgres.
type Link struct {
	Code         string     `gorm:"primaryKey;size:32"`
	URL          string     `gorm:"type:text;not null"`
	OwnerID      *string    `gorm:"type:uuid;index"`
	Custom       bool       `gorm:"not null;default:false"`
	Clicks       int64      `gorm:"not null;default:0"`
	ExpiresAt    *time.Time `gorm:"index"`
	Expired      bool       `gorm:"not null;default:false"`
	PasswordHash *string    `gorm:"size:255"`
	Analytics    Analytics  `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

// Protected reports whether the link requires a password.
func (l *Link) Protected() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// ExpiredAt reports whether the link is past its expiry at now.
func (l *Link) ExpiredAt(now time.Time) bool {
	if l.Expired {
		return true
	}
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// Analytics holds per-category click counters for a link.
type Analytics struct {
	Referrers map[string]int64 `json:"referrers"`
	Browsers  map[string]int64 `json:"browsers"`
	Devices   map[string]int64 `json:"devices"`
}

// NewAnalytics returns an aggregate with empty buckets.
func NewAnalytics() Analytics {
	return Analytics{
		Referrers: map[string]int64{},
		Browsers:  map[string]int64{},
		Devices:   map[string]int64{},
	}
}

// Record increments one bucket in each category, creating missing buckets.
func (a *Analytics) Record(v Visit) {
	if a.Referrers == nil {
		a.Referrers = map[string]int64{}
	}
	if a.Browsers == nil {
		a.Browsers = map[string]int64{}
	}
	if a.Devices == nil {
		a.Devices = map[string]int64{}
	}
	a.Referrers[v.Referrer]++
	a.Browsers[v.Browser]++
	a.Devices[v.Device]++
}

// Visit is the classification of a single redirect request.
type Visit struct {
	Referrer string
	Browser  string
	Device   string
}

// Totals is an aggregate over a set of links.
type Totals struct {
	Links  int64 `json:"totalUrls"`
	Clicks int64 `json:"totalClicks"`
}
