package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"

	"folio/internal/config"
)

// clientIP returns the address used for visitor fingerprints and the contact
// throttle. Forwarded headers only count when the direct peer is a trusted proxy.
func clientIP(c *fiber.Ctx) string {
	cfg := config.GetConfig()
	remote, _ := netip.AddrFromSlice(c.Context().RemoteIP())
	return resolveClientIP(remote, c.Get(cfg.GetProxyHeader()), cfg.GetTrustedProxies())
}

// resolveClientIP walks the forwarded chain from the right, skipping trusted
// hops. The first untrusted hop is the client; everything left of it was
// written by the client and is ignored. Without a trusted peer the remote
// address is returned as is.
func resolveClientIP(remote netip.Addr, forwarded string, trusted []netip.Prefix) string {
	remote = remote.Unmap()
	if !remote.IsValid() {
		return ""
	}
	if forwarded == "" || !isTrustedProxy(remote, trusted) {
		return remote.String()
	}

	client := remote
	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, ok := parseHop(hops[i])
		if !ok {
			break
		}
		client = addr
		if !isTrustedProxy(addr, trusted) {
			break
		}
	}
	return client.String()
}

func isTrustedProxy(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseHop accepts the forms proxies write: bare IPs, ip:port, [ipv6]:port,
// quoted values and zoned link-local addresses.
func parseHop(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return netip.Addr{}, false
	}

	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		return addrPort.Addr().WithZone("").Unmap(), true
	}

	clean = strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
	addr, err := netip.ParseAddr(clean)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.WithZone("").Unmap(), true
}

// requestUserAgent prefers the header set by proxies that forward a browser's agent.
func requestUserAgent(c *fiber.Ctx) string {
	if forwardedUA := c.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		return forwardedUA
	}
	return c.Get("User-Agent")
}

// generateETag creates a strong ETag from content using SHA-256
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
