package telemetry

import (
	"context"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeHit     = "hit"
	outcomeMiss    = "miss"
)

// CacheMetrics records DataManager activity. It implements cache.Recorder.
type CacheMetrics struct {
	fetches       *Counter
	fetchDuration *Histogram
	deduplicated  *Counter
	notifications *Counter
}

var _ cache.Recorder = (*CacheMetrics)(nil)

// NewCacheMetrics creates the cache instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	m := &CacheMetrics{}
	var err error
	if m.fetches, err = NewCounter(meter, "cache_fetch_total",
		"Collection fetches by outcome", "{fetch}"); err != nil {
		return nil, err
	}
	if m.fetchDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "cache_fetch_duration_seconds",
		Description: "Collection fetch latency in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.deduplicated, err = NewCounter(meter, "cache_fetch_deduplicated_total",
		"Fetch requests joined to an in-flight fetch", "{fetch}"); err != nil {
		return nil, err
	}
	if m.notifications, err = NewCounter(meter, "cache_notifications_total",
		"Listener notifications delivered", "{notification}"); err != nil {
		return nil, err
	}
	return m, nil
}

// FetchStarted implements cache.Recorder. Starts are counted on completion.
func (m *CacheMetrics) FetchStarted(context.Context, cache.Collection) {}

// FetchFinished implements cache.Recorder.
func (m *CacheMetrics) FetchFinished(ctx context.Context, c cache.Collection, elapsed time.Duration, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.fetches.Inc(ctx, AttrCollection.String(string(c)), AttrOutcome.String(outcome))
	m.fetchDuration.RecordDuration(ctx, elapsed, AttrCollection.String(string(c)))
}

// FetchDeduplicated implements cache.Recorder.
func (m *CacheMetrics) FetchDeduplicated(ctx context.Context, c cache.Collection) {
	m.deduplicated.Inc(ctx, AttrCollection.String(string(c)))
}

// Notified implements cache.Recorder.
func (m *CacheMetrics) Notified(ctx context.Context, c cache.Collection, listeners int) {
	if listeners <= 0 {
		return
	}
	m.notifications.Add(ctx, int64(listeners), AttrCollection.String(string(c)))
}

// DocumentMetrics records PDF rendering.
type DocumentMetrics struct {
	renders        *Counter
	renderDuration *Histogram
}

// NewDocumentMetrics creates the rendering instruments on meter.
func NewDocumentMetrics(meter metric.Meter) (*DocumentMetrics, error) {
	m := &DocumentMetrics{}
	var err error
	if m.renders, err = NewCounter(meter, "document_render_total",
		"Document requests by type and outcome", "{document}"); err != nil {
		return nil, err
	}
	if m.renderDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "document_render_duration_seconds",
		Description: "PDF rendering latency in seconds, cache misses only",
		Unit:        "s",
		Boundaries:  RenderDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRender records one document request. Durations are only recorded
// for renders that reached Chromium.
func (m *DocumentMetrics) RecordRender(ctx context.Context, docType string, elapsed time.Duration, cacheHit bool, err error) {
	if m == nil {
		return
	}
	outcome := outcomeMiss
	switch {
	case err != nil:
		outcome = outcomeError
	case cacheHit:
		outcome = outcomeHit
	}
	m.renders.Inc(ctx, AttrDocType.String(docType), AttrOutcome.String(outcome))
	if !cacheHit && err == nil {
		m.renderDuration.RecordDuration(ctx, elapsed, AttrDocType.String(docType))
	}
}
