// Package geo implements the ordered geo-resolution chain the snapshot
// middleware uses to attach a best-effort location to each captured request.
package geo

import (
	"net"
	"net/http"

	"github.com/oschwald/maxminddb-golang"
)

// Resolved is the outcome of running the resolution chain.
type Resolved struct {
	IP      string
	Country string
	City    string
	Source  string // "platform", "header", "ip", or "none"
}

// Resolver runs the chain: platform metadata -> CDN viewer-country headers
// -> explicit x-geo-* headers -> IP database lookup -> none. The first
// step returning a non-empty country wins; later steps are not consulted.
type Resolver struct {
	db *maxminddb.Reader
}

// NewResolver opens the mmdb at path if provided. An empty path is valid
// and simply disables the IP-database step.
func NewResolver(path string) (*Resolver, error) {
	if path == "" {
		return &Resolver{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Resolver{db: db}, nil
}

func (r *Resolver) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Resolve runs the full chain against an inbound request.
func (r *Resolver) Resolve(req *http.Request) Resolved {
	ip := clientIP(req)

	if country, city := platformMetadata(req); country != "" {
		return Resolved{IP: ip, Country: country, City: city, Source: "platform"}
	}

	if country, city := cdnViewerCountry(req); country != "" {
		return Resolved{IP: ip, Country: country, City: city, Source: "platform"}
	}

	if country, city := explicitHeader(req); country != "" {
		return Resolved{IP: ip, Country: country, City: city, Source: "header"}
	}

	if r.db != nil {
		if country, city, ok := r.lookup(ip); ok {
			return Resolved{IP: ip, Country: country, City: city, Source: "ip"}
		}
	}

	return Resolved{IP: ip, Source: "none"}
}

// platformMetadata reads geo fields an edge runtime attaches directly to
// the request (e.g. a Lambda@Edge / Fastly Compute context forwarded as a
// header by the invoking platform), distinct from a generic CDN's
// viewer-country header.
func platformMetadata(req *http.Request) (country, city string) {
	return req.Header.Get("X-Edge-Geo-Country"), req.Header.Get("X-Edge-Geo-City")
}

// cdnViewerCountry reads the viewer-country header a CDN attaches at the
// edge (e.g. CloudFront). Still classified as platform-sourced: it comes
// from the delivery network, not from the caller.
func cdnViewerCountry(req *http.Request) (country, city string) {
	return req.Header.Get("CloudFront-Viewer-Country"), ""
}

// explicitHeader is a caller-supplied geo hint, trusted only after the
// platform-sourced steps above have had a chance to win.
func explicitHeader(req *http.Request) (country, city string) {
	return req.Header.Get("X-Geo-Country"), req.Header.Get("X-Geo-City")
}

func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := indexByte(fwd, ','); idx >= 0 {
			return fwd[:idx]
		}
		return fwd
	}
	if real := req.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

func (r *Resolver) lookup(ipStr string) (country, city string, ok bool) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "", "", false
	}

	var record geoRecord
	if err := r.db.Lookup(ip, &record); err != nil {
		return "", "", false
	}
	if record.Country.ISOCode == "" {
		return "", "", false
	}
	return record.Country.ISOCode, record.City.Names["en"], true
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
