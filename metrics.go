package trim

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kerr"
)

const metricsNamespace = "kafka_trim"

// Metrics groups the prometheus collectors updated by Client and Server. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	partitions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics constructs the collectors and registers them on reg. When reg is
// nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "DeleteRecords requests by side, api version and result.",
			},
			[]string{"side", "version", "result"},
		),
		partitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "partitions_total",
				Help:      "Partition results of DeleteRecords responses by side and error.",
			},
			[]string{"side", "error"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "Time spent serving or waiting for DeleteRecords requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"side"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.partitions, m.duration)
	}

	return m
}

const (
	sideClient = "client"
	sideServer = "server"

	resultOK    = "ok"
	resultError = "error"
)

func (m *Metrics) observeRequest(side string, version int16, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.requests.WithLabelValues(side, strconv.Itoa(int(version)), result).Inc()
	m.duration.WithLabelValues(side).Observe(elapsed.Seconds())
}

func (m *Metrics) observeResponse(side string, res *DeleteRecordsResponse) {
	if m == nil || res == nil {
		return
	}
	for _, r := range res.results {
		m.partitions.WithLabelValues(side, errorLabel(r.ErrorCode)).Inc()
	}
}

func errorLabel(code int16) string {
	if code == 0 {
		return "NONE"
	}
	var kafkaErr *kerr.Error
	if errors.As(Error(code), &kafkaErr) && kafkaErr.Code == code {
		return kafkaErr.Message
	}
	return strconv.Itoa(int(code))
}
