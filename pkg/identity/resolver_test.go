package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haasonsaas/limitd/pkg/limiter"
)

func TestResolveIP(t *testing.T) {
	tests := []struct {
		name string
		meta func() Meta
		want string
	}{
		{
			name: "peer address wins",
			meta: func() Meta {
				r := httptest.NewRequest("GET", "/", nil)
				r.Header.Set("X-Forwarded-For", "203.0.113.5")
				m := FromRequest(r)
				m.PeerIP = "198.51.100.1"
				return m
			},
			want: "198.51.100.1",
		},
		{
			name: "first forwarded-for entry",
			meta: func() Meta {
				r := httptest.NewRequest("GET", "/", nil)
				r.Header.Set("X-Forwarded-For", " 203.0.113.5 , 10.0.0.1, 10.0.0.2")
				return FromRequest(r)
			},
			want: "203.0.113.5",
		},
		{
			name: "real-ip header",
			meta: func() Meta {
				r := httptest.NewRequest("GET", "/", nil)
				r.Header.Set("X-Real-IP", "203.0.113.9")
				return FromRequest(r)
			},
			want: "203.0.113.9",
		},
		{
			name: "remote addr host",
			meta: func() Meta {
				r := httptest.NewRequest("GET", "/", nil)
				r.RemoteAddr = "192.0.2.44:51234"
				return FromRequest(r)
			},
			want: "192.0.2.44",
		},
		{
			name: "loopback fallback",
			meta: func() Meta { return Meta{} },
			want: FallbackIP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.meta(), limiter.ClientIDIP))
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-API-Key", "key-123")
	r.Header.Set("Authorization", "Bearer tok-456")
	assert.Equal(t, "key-123", Resolve(FromRequest(r), limiter.ClientIDAPIKey))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer tok-456")
	assert.Equal(t, "tok-456", Resolve(FromRequest(r), limiter.ClientIDAPIKey))

	r = httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, FallbackAPIKey, Resolve(FromRequest(r), limiter.ClientIDAPIKey))
}

func TestResolveUserID(t *testing.T) {
	meta := Meta{UserID: "u-1"}
	assert.Equal(t, "u-1", Resolve(meta, limiter.ClientIDUserID))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "u-2")
	assert.Equal(t, "u-2", Resolve(FromRequest(r), limiter.ClientIDUserID))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-ID", "u-3")
	assert.Equal(t, "u-3", Resolve(FromRequest(r), limiter.ClientIDUserID))

	assert.Equal(t, FallbackUserID, Resolve(Meta{}, limiter.ClientIDUserID))
}

func TestResolveUnknownModeFallsBackToIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.44:51234"
	assert.Equal(t, "192.0.2.44", Resolve(FromRequest(r), limiter.ClientIDType("session")))
}
