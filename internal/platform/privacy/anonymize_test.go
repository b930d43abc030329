package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want string
	}{
		{"ipv4 zeroes last octet", "192.168.1.47", "192.168.1.0"},
		{"ipv4 localhost", "127.0.0.1", "127.0.0.0"},
		{"ipv6 keeps /48 prefix", "2001:db8:85a3::8a2e:370:7334", "2001:0db8:85a3::"},
		{"empty is unknown", "", "unknown"},
		{"unknown passthrough", "unknown", "unknown"},
		{"garbage is invalid", "not-an-ip", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.ip))
		})
	}
}

func TestHash(t *testing.T) {
	h := Hash("super-secret-api-key")

	assert.Len(t, h, 8)
	assert.NotContains(t, h, "secret")
	assert.Equal(t, h, Hash("super-secret-api-key"), "must be deterministic")
	assert.NotEqual(t, h, Hash("other-key"))
}
