package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/geo"
	"github.com/snapq/snapq-go/internal/logger"
	"github.com/snapq/snapq-go/internal/queue"
)

const replayHeader = "X-Snapq-Replay"

// baseRedactedHeaders never appear in a persisted snapshot, case-insensitive.
var baseRedactedHeaders = []string{
	"authorization",
	"cookie",
	"set-cookie",
	"x-api-key",
	"x-auth-token",
	"proxy-authorization",
}

const redactedPlaceholder = "[redacted]"

func buildDenyList(extra []string) map[string]struct{} {
	deny := make(map[string]struct{}, len(baseRedactedHeaders)+len(extra))
	for _, h := range baseRedactedHeaders {
		deny[h] = struct{}{}
	}
	for _, h := range extra {
		deny[strings.ToLower(h)] = struct{}{}
	}
	return deny
}

// bodyTee copies the first max bytes written to the underlying
// ResponseWriter so they can be captured after the handler chain finishes;
// every byte is still passed through to the actual response.
type bodyTee struct {
	gin.ResponseWriter
	buf *bytes.Buffer
	max int
}

func (w *bodyTee) Write(b []byte) (int, error) {
	if w.buf.Len() < w.max {
		remaining := w.max - w.buf.Len()
		if remaining > len(b) {
			w.buf.Write(b)
		} else {
			w.buf.Write(b[:remaining])
		}
	}
	return w.ResponseWriter.Write(b)
}

// Snapshot captures the request/response pair and enqueues it for async
// persistence. It never blocks the response path: the capture happens
// in-memory, and persistence is handed off to the queue.
func Snapshot(cfg *config.Config, q queue.Queue, resolver *geo.Resolver, log *logger.Logger) gin.HandlerFunc {
	deny := buildDenyList(cfg.SnapshotRedactHeaders)

	return func(c *gin.Context) {
		if c.GetHeader(replayHeader) == "1" {
			c.Next()
			return
		}

		start := time.Now()
		maxBytes := cfg.SnapshotMaxBodyBytes

		reqBody, truncatedReq := readAndRestore(c, maxBytes)

		tee := &bodyTee{ResponseWriter: c.Writer, buf: &bytes.Buffer{}, max: maxBytes}
		c.Writer = tee

		c.Next()

		resolved := resolver.Resolve(c.Request)

		payload := map[string]interface{}{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"query":              c.Request.URL.RawQuery,
			"request_headers":    headerMap(c.Request.Header, deny),
			"request_body":       reqBody,
			"request_truncated":  truncatedReq,
			"status_code":        c.Writer.Status(),
			"response_headers":   headerMap(c.Writer.Header(), deny),
			"response_body":      tee.buf.String(),
			"response_truncated": tee.buf.Len() >= maxBytes,
			"client_ip":          resolved.IP,
			"geo_country":        resolved.Country,
			"geo_city":           resolved.City,
			"geo_source":         resolved.Source,
			"duration_ms":        time.Since(start).Milliseconds(),
			"occurred_at":        start,
		}

		if _, err := q.EnqueueType(c.Request.Context(), queue.JobTypeSnapshotPersist, payload, queue.EnqueueOptions{}); err != nil {
			log.Warnw("failed to enqueue snapshot", "error", err)
		}
	}
}

func readAndRestore(c *gin.Context, max int) (string, bool) {
	if c.Request.Body == nil {
		return "", false
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	truncated := false
	if len(body) > max {
		body = body[:max]
		truncated = true
	}
	return string(body), truncated
}

// headerMap converts net/http's header shape to a JSON-friendly map,
// replacing any deny-listed key's value with a fixed placeholder so
// credentials never reach storage.
func headerMap(h map[string][]string, deny map[string]struct{}) models.JSONMap {
	out := make(models.JSONMap, len(h))
	for k, v := range h {
		if _, denied := deny[strings.ToLower(k)]; denied {
			out[k] = redactedPlaceholder
			continue
		}
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}
