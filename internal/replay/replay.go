// Package replay reconstructs a captured request from a snapshot and
// re-dispatches it in-process against the running router, without
// producing a new snapshot for the replayed execution.
package replay

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/snapshot"
)

// hopByHop headers are never replayed; they describe the original
// connection, not the request semantics.
var hopByHop = map[string]struct{}{
	"connection":        {},
	"keep-alive":        {},
	"proxy-authenticate": {},
	"proxy-authorization": {},
	"te":                {},
	"trailer":           {},
	"transfer-encoding": {},
	"upgrade":           {},
	"content-length":    {},
	"host":              {},
}

// defaultAllowedMethods is the permissive default allow-set: every method
// may be replayed unless the caller configures a tighter policy.
var defaultAllowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

type Result struct {
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body"`
	Duration   int64               `json:"duration"`
}

type Engine struct {
	snapshots      *snapshot.Service
	router         http.Handler
	allowedMethods map[string]bool
}

func NewEngine(snapshots *snapshot.Service, router http.Handler, allowedMethods map[string]bool) *Engine {
	if allowedMethods == nil {
		allowedMethods = defaultAllowedMethods
	}
	return &Engine{snapshots: snapshots, router: router, allowedMethods: allowedMethods}
}

func (e *Engine) Replay(id string) (*Result, error) {
	row, err := e.snapshots.Get(id)
	if err != nil {
		return nil, err
	}

	if !e.allowedMethods[strings.ToUpper(row.Method)] {
		return nil, apperror.Forbidden("replay not permitted for method " + row.Method)
	}

	req, err := reconstructRequest(row)
	if err != nil {
		return nil, apperror.Internal("failed to reconstruct replay request", err)
	}

	recorder := httptest.NewRecorder()
	start := time.Now()
	e.router.ServeHTTP(recorder, req)
	duration := time.Since(start)

	return &Result{
		StatusCode: recorder.Code,
		Headers:    recorder.Header(),
		Body:       recorder.Body.String(),
		Duration:   duration.Milliseconds(),
	}, nil
}

func reconstructRequest(row *models.RequestSnapshot) (*http.Request, error) {
	target := row.Path
	if row.Query != "" {
		target += "?" + row.Query
	}

	req, err := http.NewRequest(row.Method, target, bytes.NewBufferString(row.RequestBody))
	if err != nil {
		return nil, err
	}

	for k, v := range row.RequestHeader {
		if _, denied := hopByHop[strings.ToLower(k)]; denied {
			continue
		}
		if s, ok := v.(string); ok {
			req.Header.Set(k, s)
		}
	}

	req.Header.Set("X-Snapq-Replay", "1")
	return req, nil
}
