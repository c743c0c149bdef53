package tlsutil

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.NotEmpty(t, cfg.CipherSuites)

	aead := map[uint16]bool{
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384: true,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384:   true,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256: true,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256:   true,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305:  true,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305:    true,
	}
	for _, cs := range cfg.CipherSuites {
		assert.True(t, aead[cs], "unexpected non-AEAD cipher suite %d", cs)
	}
}

func TestClientConfig(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"redis.internal:6380", "redis.internal"},
		{"10.0.0.5:6379", "10.0.0.5"},
		{"[::1]:6379", "::1"},
		{"cache.example.com", "cache.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			cfg := ClientConfig(tt.addr)
			assert.Equal(t, tt.want, cfg.ServerName)
			assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
		})
	}

	// 每次返回独立副本
	a, b := ClientConfig("a:1"), ClientConfig("b:1")
	assert.NotEqual(t, a.ServerName, b.ServerName)
}
