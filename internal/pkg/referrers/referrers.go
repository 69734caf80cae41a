package referrers

import (
	"net/url"
	"sort"
	"strings"
)

// Direct is reported for visits without a usable referrer.
const Direct = "__direct_or_unknown__"

// Referrer hostnames a portfolio typically receives traffic from, mapped to display names.
var knownReferrers = map[string]string{
	// Search
	"google.com":     "Google",
	"google.co.uk":   "Google",
	"google.de":      "Google",
	"google.fr":      "Google",
	"bing.com":       "Bing",
	"duckduckgo.com": "DuckDuckGo",
	"yahoo.com":      "Yahoo",
	"ecosia.org":     "Ecosia",
	"kagi.com":       "Kagi",

	// Social
	"x.com":           "X/Twitter",
	"twitter.com":     "X/Twitter",
	"t.co":            "X/Twitter",
	"facebook.com":    "Facebook",
	"l.facebook.com":  "Facebook",
	"instagram.com":   "Instagram",
	"linkedin.com":    "LinkedIn",
	"lnkd.in":         "LinkedIn",
	"reddit.com":      "Reddit",
	"threads.net":     "Threads",
	"bsky.app":        "Bluesky",
	"mastodon.social": "Mastodon",
	"youtube.com":     "YouTube",
	"youtu.be":        "YouTube",

	// Portfolio and hiring platforms
	"github.com":         "GitHub",
	"gitlab.com":         "GitLab",
	"dribbble.com":       "Dribbble",
	"behance.net":        "Behance",
	"upwork.com":         "Upwork",
	"fiverr.com":         "Fiverr",
	"toptal.com":         "Toptal",
	"wellfound.com":      "Wellfound",
	"indeed.com":         "Indeed",
	"stackoverflow.com":  "Stack Overflow",
	"dev.to":             "DEV Community",
	"medium.com":         "Medium",
	"hashnode.com":       "Hashnode",
	"producthunt.com":    "Product Hunt",
	"news.ycombinator.com": "Hacker News",

	// Mail
	"mail.google.com":  "Gmail",
	"outlook.live.com": "Outlook",
	"mail.proton.me":   "Proton Mail",
}

// suffixes holds the known domains longest first so subdomain matching is deterministic.
var suffixes = func() []string {
	out := make([]string, 0, len(knownReferrers))
	for domain := range knownReferrers {
		out = append(out, domain)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// HostFromURL extracts the lowercase hostname of a referrer URL without a leading "www.".
// It returns Direct for empty or unparsable values.
func HostFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Direct
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return Direct
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// FriendlyName returns a human-friendly name for a referrer hostname.
// Unknown hostnames are returned without "www." and with the first letter capitalized.
func FriendlyName(hostname string) string {
	hostname = strings.TrimPrefix(strings.ToLower(hostname), "www.")

	if name, ok := knownReferrers[hostname]; ok {
		return name
	}

	for _, domain := range suffixes {
		if strings.HasSuffix(hostname, "."+domain) {
			return knownReferrers[domain]
		}
	}

	return capitalizeFirst(hostname)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
