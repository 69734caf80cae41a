package v1

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/config"
)

func TestResolveClientIP(t *testing.T) {
	trusted, err := config.ParseTrustedProxies("127.0.0.1, 10.0.0.0/8, ::1")
	require.NoError(t, err)

	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{name: "direct public client", remote: "203.0.113.9", want: "203.0.113.9"},
		{name: "direct private client keeps its own address", remote: "192.168.1.20", want: "192.168.1.20"},
		{name: "untrusted peer cannot forward", remote: "203.0.113.9", forwarded: "8.8.8.1", want: "203.0.113.9"},
		{name: "trusted proxy forwards client", remote: "127.0.0.1", forwarded: "8.8.8.1", want: "8.8.8.1"},
		{name: "client supplied hops are ignored", remote: "127.0.0.1", forwarded: "6.6.6.6, 8.8.8.1", want: "8.8.8.1"},
		{name: "chained trusted proxies are skipped", remote: "127.0.0.1", forwarded: "8.8.8.1, 10.0.0.7", want: "8.8.8.1"},
		{name: "private client behind proxy", remote: "127.0.0.1", forwarded: "192.168.1.20", want: "192.168.1.20"},
		{name: "ipv6 client with port", remote: "::1", forwarded: "[2001:db8::1]:8443", want: "2001:db8::1"},
		{name: "garbage hop stops the walk", remote: "127.0.0.1", forwarded: "8.8.8.1, unknown", want: "127.0.0.1"},
		{name: "mapped peer address", remote: "::ffff:203.0.113.9", want: "203.0.113.9"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			remote := netip.MustParseAddr(tc.remote)
			assert.Equal(t, tc.want, resolveClientIP(remote, tc.forwarded, trusted))
		})
	}

	t.Run("no trusted proxies", func(t *testing.T) {
		remote := netip.MustParseAddr("127.0.0.1")
		assert.Equal(t, "127.0.0.1", resolveClientIP(remote, "8.8.8.1", nil))
	})
}

func TestParseHop(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: " 79.144.65.173 ", want: "79.144.65.173"},
		{raw: "\"79.144.65.173:1234\"", want: "79.144.65.173"},
		{raw: "[2001:db8::1]", want: "2001:db8::1"},
		{raw: "fe80::1%eth0", want: "fe80::1"},
		{raw: "::ffff:203.0.113.9", want: "203.0.113.9"},
		{raw: "not-an-ip", want: ""},
		{raw: "  ", want: ""},
	}

	for _, tc := range tests {
		addr, ok := parseHop(tc.raw)
		if tc.want == "" {
			assert.False(t, ok, tc.raw)
			continue
		}
		require.True(t, ok, tc.raw)
		assert.Equal(t, tc.want, addr.String())
	}
}

func TestGenerateETag(t *testing.T) {
	first := generateETag([]byte(`{"services":[]}`))
	assert.Equal(t, first, generateETag([]byte(`{"services":[]}`)))
	assert.NotEqual(t, first, generateETag([]byte(`{"services":[{}]}`)))
	assert.Len(t, first, 66)
}
