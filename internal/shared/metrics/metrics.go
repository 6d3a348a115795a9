package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	documentsSavedTotal   atomic.Uint64
	documentsSharedTotal  atomic.Uint64
	shareLinksIssuedTotal atomic.Uint64
	guestCommentsTotal    atomic.Uint64
	userCommentsTotal     atomic.Uint64
	presignFailuresTotal  atomic.Uint64

	presignDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500})
)

// IncDocumentSaved counts registered documents.
func IncDocumentSaved() {
	documentsSavedTotal.Add(1)
}

// IncDocumentShared counts successful share-by-email calls.
func IncDocumentShared() {
	documentsSharedTotal.Add(1)
}

// IncShareLinkIssued counts share tokens minted for the first time.
func IncShareLinkIssued() {
	shareLinksIssuedTotal.Add(1)
}

// IncCommentAppended counts appended comments by attribution mode.
func IncCommentAppended(guest bool) {
	if guest {
		guestCommentsTotal.Add(1)
		return
	}
	userCommentsTotal.Add(1)
}

// IncPresignFailure counts failed URL minting calls.
func IncPresignFailure() {
	presignFailuresTotal.Add(1)
}

// ObservePresignDurationMs records a URL minting duration in milliseconds.
func ObservePresignDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	presignDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "documents_saved_total", "Total documents registered", documentsSavedTotal.Load())
	writeCounter(&buf, "documents_shared_total", "Total share-by-email operations", documentsSharedTotal.Load())
	writeCounter(&buf, "share_links_issued_total", "Total share tokens minted", shareLinksIssuedTotal.Load())
	writeLabeledCounter(&buf, "comments_appended_total", "Total comments appended", "author", map[string]uint64{
		"guest": guestCommentsTotal.Load(),
		"user":  userCommentsTotal.Load(),
	})
	writeCounter(&buf, "presign_failures_total", "Total failed object URL minting calls", presignFailuresTotal.Load())
	writeHistogram(&buf, "presign_duration_ms", "Object URL minting duration in milliseconds", presignDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	// Observe already counts a value in every bucket whose bound it fits under.
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), snap.counts[i])
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// Since returns the elapsed milliseconds since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
