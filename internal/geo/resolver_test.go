package geo

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver("")
	require.NoError(t, err)
	return r
}

func TestResolveChainPrecedence(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		name    string
		headers map[string]string
		want    Resolved
	}{
		{
			name: "platform metadata wins over everything",
			headers: map[string]string{
				"X-Edge-Geo-Country":        "US",
				"X-Edge-Geo-City":           "Seattle",
				"CloudFront-Viewer-Country": "GB",
				"X-Geo-Country":             "FR",
			},
			want: Resolved{Country: "US", City: "Seattle", Source: "platform"},
		},
		{
			name: "CDN viewer-country wins over an explicit header",
			headers: map[string]string{
				"CloudFront-Viewer-Country": "GB",
				"X-Geo-Country":             "FR",
			},
			want: Resolved{Country: "GB", City: "", Source: "platform"},
		},
		{
			name: "explicit header used when no platform signal present",
			headers: map[string]string{
				"X-Geo-Country": "FR",
				"X-Geo-City":    "Paris",
			},
			want: Resolved{Country: "FR", City: "Paris", Source: "header"},
		},
		{
			name:    "no geo signal at all",
			headers: map[string]string{},
			want:    Resolved{Source: "none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/", nil)
			require.NoError(t, err)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			got := r.Resolve(req)
			assert.Equal(t, tt.want.Country, got.Country)
			assert.Equal(t, tt.want.City, got.City)
			assert.Equal(t, tt.want.Source, got.Source)
		})
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := newResolver(t)

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	req.RemoteAddr = "10.0.0.1:54321"

	got := r.Resolve(req)
	assert.Equal(t, "203.0.113.5", got.IP)
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	r := newResolver(t)

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.RemoteAddr = "198.51.100.7:12345"

	got := r.Resolve(req)
	assert.Equal(t, "198.51.100.7", got.IP)
}
