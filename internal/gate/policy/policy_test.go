package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"analytics-gateway/internal/platform/config"
)

func TestAllowedOrigins_DevelopmentAllowsAll(t *testing.T) {
	p := New(config.Server{
		Mode:           config.Development,
		AllowedOrigins: []string{"https://a.example.com"},
	})

	assert.Equal(t, []string{"*"}, p.AllowedOrigins(),
		"development ignores configured origins")
}

func TestAllowedOrigins_ProductionUsesConfiguredSet(t *testing.T) {
	p := New(config.Server{
		Mode:           config.Production,
		AllowedOrigins: []string{"https://a.example.com", "", "https://b.example.com"},
	})

	assert.Equal(t,
		[]string{"https://a.example.com", "https://b.example.com"},
		p.AllowedOrigins(),
		"empty entries are filtered")
}

func TestAllowedOrigins_ProductionEmpty(t *testing.T) {
	p := New(config.Server{Mode: config.Production})
	assert.Empty(t, p.AllowedOrigins())
}

func TestCredentials_EmptyEntriesFiltered(t *testing.T) {
	p := New(config.Server{APIKeys: []string{"key-1", "", "key-2"}})

	assert.True(t, p.CredentialsConfigured())
	assert.True(t, p.HasCredential("key-1"))
	assert.True(t, p.HasCredential("key-2"))
	assert.False(t, p.HasCredential(""))
	assert.False(t, p.HasCredential("key-3"))
}

func TestCredentials_NoneConfigured(t *testing.T) {
	p := New(config.Server{APIKeys: []string{"", ""}})
	assert.False(t, p.CredentialsConfigured())
}

func TestQuotaAndWindow(t *testing.T) {
	p := New(config.Server{RateLimitQuota: 42, RateLimitWindow: 90 * time.Second})
	assert.Equal(t, 42, p.Quota())
	assert.Equal(t, 90*time.Second, p.Window())
}

func TestAllowedOrigins_ReturnsCopy(t *testing.T) {
	p := New(config.Server{
		Mode:           config.Production,
		AllowedOrigins: []string{"https://a.example.com"},
	})

	got := p.AllowedOrigins()
	got[0] = "mutated"
	assert.Equal(t, []string{"https://a.example.com"}, p.AllowedOrigins())
}
