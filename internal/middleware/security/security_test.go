package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetector_InvalidCIDR(t *testing.T) {
	_, err := NewDetector([]string{"10.0.0.0/8", "not-a-cidr"})
	assert.Error(t, err)
}

func TestExtractClientIP(t *testing.T) {
	d, err := NewDetector([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct peer", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"untrusted peer ignores headers", "203.0.113.5:4000", "1.2.3.4", "", "203.0.113.5"},
		{"trusted proxy forwards", "10.1.2.3:80", "198.51.100.7, 10.1.2.3", "", "198.51.100.7"},
		{"trusted proxy real ip", "10.1.2.3:80", "", "198.51.100.8", "198.51.100.8"},
		{"trusted proxy garbage header", "10.1.2.3:80", "nonsense", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
	assert.Equal(t, int64(1), d.GetMetrics().InvalidIPAttempts)
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d, err := NewDetector(nil)
	require.NoError(t, err)

	clean := httptest.NewRequest(http.MethodGet, "/api/transactions?categoryId=2", nil)
	clean.Header.Set("User-Agent", "Mozilla/5.0")
	assert.False(t, d.DetectSuspiciousRequest(clean))

	probe := httptest.NewRequest(http.MethodGet, "/.env", nil)
	assert.True(t, d.DetectSuspiciousRequest(probe))

	scanner := httptest.NewRequest(http.MethodGet, "/", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	assert.True(t, d.DetectSuspiciousRequest(scanner))

	trace := httptest.NewRequest("TRACE", "/", nil)
	assert.True(t, d.DetectSuspiciousRequest(trace))

	assert.Equal(t, int64(3), d.GetMetrics().SuspiciousRequests)
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}
