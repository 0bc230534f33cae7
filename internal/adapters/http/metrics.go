package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"uptimeboard/internal/core/domain"
	"uptimeboard/internal/ingest"
)

// QueueStats is the part of the ingest worker the metrics endpoint reads.
type QueueStats interface {
	Stats() ingest.Stats
	Len() int
	Cap() int
}

// MetricsHandler godoc
// @Summary Prometheus metrics
// @Description Per-device uptime and last-seen gauges plus ingest queue counters, in the text exposition format.
// @Tags system
// @Produce plain
// @Success 200 {string} string
// @Router /metrics [get]
func (h *Handler) MetricsHandler(queue QueueStats) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := h.now()
		families := BuildMetrics(h.svc.Snapshot(now), h.svc.Params(), queue)

		var buf bytes.Buffer
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
				h.writeError(c, err)
				return
			}
		}
		c.Data(http.StatusOK, string(expfmt.NewFormat(expfmt.TypeTextPlain)), buf.Bytes())
	}
}

// BuildMetrics assembles the exported metric families. queue may be nil.
func BuildMetrics(rows []domain.ReportRow, params domain.Window, queue QueueStats) []*dto.MetricFamily {
	uptime := gaugeFamily("uptimeboard_device_uptime_percent", "Integer uptime percentage over the configured window.")
	lastSeen := gaugeFamily("uptimeboard_device_last_seen_timestamp_seconds", "Unix time of the newest heartbeat.")
	for _, r := range rows {
		labels := []*dto.LabelPair{{Name: proto.String("device_id"), Value: proto.String(r.DeviceID)}}
		uptime.Metric = append(uptime.Metric, &dto.Metric{
			Label: labels,
			Gauge: &dto.Gauge{Value: proto.Float64(float64(r.UptimePercent))},
		})
		lastSeen.Metric = append(lastSeen.Metric, &dto.Metric{
			Label: labels,
			Gauge: &dto.Gauge{Value: proto.Float64(float64(r.LastSeen.UnixNano()) / 1e9)},
		})
	}

	families := []*dto.MetricFamily{
		gauge("uptimeboard_devices", "Number of devices that have reported.", float64(len(rows))),
		gauge("uptimeboard_interval_seconds", "Expected heartbeat interval.", params.Interval.Seconds()),
		gauge("uptimeboard_window_seconds", "Trailing window used for uptime.", params.Window.Seconds()),
	}
	if len(rows) > 0 {
		families = append(families, uptime, lastSeen)
	}

	if queue != nil {
		st := queue.Stats()
		families = append(families,
			counter("uptimeboard_ingest_accepted_total", "Heartbeats applied to the engine.", float64(st.Accepted)),
			counter("uptimeboard_ingest_rejected_total", "Heartbeats the engine refused.", float64(st.Rejected)),
			counter("uptimeboard_ingest_dropped_total", "Heartbeats dropped because the queue was full.", float64(st.Dropped)),
			gauge("uptimeboard_ingest_queue_length", "Heartbeats waiting to be applied.", float64(queue.Len())),
			gauge("uptimeboard_ingest_queue_capacity", "Ingest queue depth.", float64(queue.Cap())),
		)
	}
	return families
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	mf := gaugeFamily(name, help)
	mf.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}}
	return mf
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}
