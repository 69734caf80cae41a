package referrers

import "testing"

func TestFriendlyName(t *testing.T) {
	tests := []struct {
		hostname string
		expected string
	}{
		{"google.com", "Google"},
		{"news.ycombinator.com", "Hacker News"},
		{"t.co", "X/Twitter"},
		{"linkedin.com", "LinkedIn"},
		{"dribbble.com", "Dribbble"},

		{"www.behance.net", "Behance"},
		{"m.facebook.com", "Facebook"},
		{"uk.linkedin.com", "LinkedIn"},

		{"example.com", "Example.com"},
		{"www.example.com", "Example.com"},

		{"GITHUB.COM", "GitHub"},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			got := FriendlyName(tt.hostname)
			if got != tt.expected {
				t.Errorf("FriendlyName(%q) = %q, want %q", tt.hostname, got, tt.expected)
			}
		})
	}
}

func TestHostFromURL(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"", Direct},
		{"   ", Direct},
		{"not a url", Direct},
		{"https://www.Google.com/search?q=folio", "google.com"},
		{"https://dribbble.com/shots/1", "dribbble.com"},
		{"http://localhost:3000/", "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := HostFromURL(tt.raw)
			if got != tt.expected {
				t.Errorf("HostFromURL(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}
