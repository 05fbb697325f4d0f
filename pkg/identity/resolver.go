// Package identity derives a stable client key from request metadata
// according to the active policy's client identification mode.
package identity

import (
	"net"
	"net/http"
	"strings"

	"github.com/haasonsaas/limitd/pkg/limiter"
)

// Fallback keys used when no identity can be extracted.
const (
	FallbackIP     = "127.0.0.1"
	FallbackAPIKey = "anonymous-api"
	FallbackUserID = "anonymous-user"
)

// Meta is the transport-agnostic request metadata the resolver consumes.
type Meta struct {
	// PeerIP is the resolved peer address, if the transport provides one.
	PeerIP string
	// RemoteAddr is the raw transport-level address, possibly host:port.
	RemoteAddr string
	// Header carries the request headers.
	Header http.Header
	// UserID is the authenticated user id, if any.
	UserID string
}

// FromRequest builds Meta from an *http.Request.
func FromRequest(r *http.Request) Meta {
	return Meta{
		RemoteAddr: r.RemoteAddr,
		Header:     r.Header,
	}
}

// Resolve derives the client key for the given identification mode. It is a
// pure function of the metadata; unknown modes fall back to IP resolution.
func Resolve(meta Meta, mode limiter.ClientIDType) string {
	switch mode {
	case limiter.ClientIDAPIKey:
		return resolveAPIKey(meta)
	case limiter.ClientIDUserID:
		return resolveUserID(meta)
	default:
		return resolveIP(meta)
	}
}

func resolveIP(meta Meta) string {
	if meta.PeerIP != "" {
		return meta.PeerIP
	}
	if xff := headerValue(meta, "X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			first = xff[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := headerValue(meta, "X-Real-IP"); realIP != "" {
		return realIP
	}
	if meta.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(meta.RemoteAddr); err == nil && host != "" {
			return host
		}
		return meta.RemoteAddr
	}
	return FallbackIP
}

func resolveAPIKey(meta Meta) string {
	if key := headerValue(meta, "X-API-Key"); key != "" {
		return key
	}
	if auth := headerValue(meta, "Authorization"); auth != "" {
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer"))
		if token != "" {
			return token
		}
	}
	return FallbackAPIKey
}

func resolveUserID(meta Meta) string {
	if meta.UserID != "" {
		return meta.UserID
	}
	if id := headerValue(meta, "X-User-ID"); id != "" {
		return id
	}
	if id := headerValue(meta, "User-ID"); id != "" {
		return id
	}
	return FallbackUserID
}

func headerValue(meta Meta, name string) string {
	if meta.Header == nil {
		return ""
	}
	return strings.TrimSpace(meta.Header.Get(name))
}
