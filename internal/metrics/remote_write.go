package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"go.uber.org/zap"
)

// StartRemoteWrite flushes tenant-labelled series to Mimir until ctx ends.
// It returns immediately when no Mimir URL is configured.
func (c *Collector) StartRemoteWrite(ctx context.Context, logger *zap.Logger) {
	if c == nil || c.mimir == nil {
		return
	}
	interval := c.config.FlushInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.flush(ctx); err != nil {
				logger.Warn("Remote write failed", zap.Error(err))
			}
		}
	}
}

func (c *Collector) flush(ctx context.Context) error {
	mfs, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	byTenant := metricsToSeries(mfs, time.Now())
	batchSize := c.config.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	for tenantID, series := range byTenant {
		for i := 0; i < len(series); i += batchSize {
			end := i + batchSize
			if end > len(series) {
				end = len(series)
			}
			if err := c.mimir.Push(ctx, tenantID, series[i:end]); err != nil {
				return fmt.Errorf("tenant %s: %w", tenantID, err)
			}
		}
	}
	return nil
}

// metricsToSeries converts gathered families into remote write series grouped
// by tenant_id. Families without the label are process-level and skipped.
func metricsToSeries(mfs []*dto.MetricFamily, now time.Time) map[string][]prompb.TimeSeries {
	ts := now.UnixMilli()
	out := make(map[string][]prompb.TimeSeries)

	for _, mf := range mfs {
		for _, m := range mf.Metric {
			var tenantID string
			labels := make([]prompb.Label, 0, len(m.Label)+1)
			labels = append(labels, prompb.Label{Name: "__name__", Value: mf.GetName()})
			for _, l := range m.Label {
				if l.GetName() == "tenant_id" {
					tenantID = l.GetValue()
				}
				labels = append(labels, prompb.Label{Name: l.GetName(), Value: l.GetValue()})
			}
			if tenantID == "" {
				continue
			}

			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[tenantID] = append(out[tenantID], sample(labels, m.Counter.GetValue(), ts))
			case dto.MetricType_GAUGE:
				out[tenantID] = append(out[tenantID], sample(labels, m.Gauge.GetValue(), ts))
			case dto.MetricType_HISTOGRAM:
				h := m.Histogram
				for _, bucket := range h.Bucket {
					bucketLabels := append(append([]prompb.Label{}, labels...), prompb.Label{
						Name:  "le",
						Value: fmt.Sprintf("%g", bucket.GetUpperBound()),
					})
					bucketLabels[0].Value = mf.GetName() + "_bucket"
					out[tenantID] = append(out[tenantID], sample(bucketLabels, float64(bucket.GetCumulativeCount()), ts))
				}
				sumLabels := append([]prompb.Label{}, labels...)
				sumLabels[0].Value = mf.GetName() + "_sum"
				countLabels := append([]prompb.Label{}, labels...)
				countLabels[0].Value = mf.GetName() + "_count"
				out[tenantID] = append(out[tenantID],
					sample(sumLabels, h.GetSampleSum(), ts),
					sample(countLabels, float64(h.GetSampleCount()), ts),
				)
			}
		}
	}
	return out
}

// sample sorts labels by name, as remote write receivers expect.
func sample(labels []prompb.Label, value float64, ts int64) prompb.TimeSeries {
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: value, Timestamp: ts}},
	}
}
