package service

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		referrer string
		ua       string
		want     [3]string
	}{
		{
			name: "chrome desktop also carries safari token",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			want: [3]string{"direct", "Chrome", "desktop"},
		},
		{
			name:     "firefox android",
			referrer: "https://news.example.com/",
			ua:       "Mozilla/5.0 (Android 14; Mobile; rv:125.0) Gecko/125.0 Firefox/125.0",
			want:     [3]string{"https://news.example.com/", "Firefox", "mobile"},
		},
		{
			name: "safari on iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 Version/17.4 Mobile/15E148 Safari/604.1",
			want: [3]string{"direct", "Safari", "mobile"},
		},
		{
			name: "kindle tablet",
			ua:   "Mozilla/5.0 (Linux; U; en-US) AppleWebKit/528.5+ (KHTML, like Gecko) Kindle/3.0",
			want: [3]string{"direct", "Other", "tablet"},
		},
		{
			name: "internet explorer",
			ua:   "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko",
			want: [3]string{"direct", "Internet Explorer", "desktop"},
		},
		{
			name: "empty user agent",
			want: [3]string{"direct", "Other", "desktop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(tt.referrer, tt.ua)
			got := [3]string{v.Referrer, v.Browser, v.Device}
			if got != tt.want {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
