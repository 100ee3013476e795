package service

import (
	"strings"

	"github.com/sifan077/ShortcutURL/internal/app/model"
)

const (
	directReferrer = "direct"
	otherBrowser   = "Other"
)

// browserMarkers is checked in order; the first match wins. Chrome's UA also
// carries "Safari", so Chrome must come first.
var browserMarkers = []struct {
	token string
	name  string
}{
	{"Chrome", "Chrome"},
	{"Firefox", "Firefox"},
	{"Safari", "Safari"},
	{"Edge", "Edge"},
	{"MSIE", "Internet Explorer"},
	{"Trident", "Internet Explorer"},
}

var (
	mobileMarkers = []string{"Mobile", "Android", "iPhone", "iPod", "Windows Phone", "BlackBerry"}
	tabletMarkers = []string{"Tablet", "iPad", "Kindle", "Silk", "PlayBook"}
)

// Classify derives the analytics buckets for one redirect request.
func Classify(referrer, userAgent string) model.Visit {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		referrer = directReferrer
	}
	return model.Visit{
		Referrer: referrer,
		Browser:  classifyBrowser(userAgent),
		Device:   classifyDevice(userAgent),
	}
}

func classifyBrowser(ua string) string {
	for _, m := range browserMarkers {
		if strings.Contains(ua, m.token) {
			return m.name
		}
	}
	return otherBrowser
}

func classifyDevice(ua string) string {
	switch {
	case containsAny(ua, mobileMarkers):
		return "mobile"
	case containsAny(ua, tabletMarkers):
		return "tablet"
	default:
		return "desktop"
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
