package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code11_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "code11_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Validation metrics
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code11_validations_total",
			Help: "Total number of barcode validations",
		},
		[]string{"source", "outcome"}, // source: http, batch, websocket; outcome: valid, invalid, error
	)

	decodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code11_decode_errors_total",
			Help: "Total number of inputs rejected while decoding",
		},
		[]string{"kind"}, // kind: unknown_symbol, unknown_character, bad_request
	)

	barcodeLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "code11_barcode_length",
			Help:    "Number of symbols per validated barcode",
			Buckets: []float64{2, 3, 4, 6, 8, 12, 16, 24, 32, 64},
		},
	)

	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "code11_batch_size",
			Help:    "Number of items per batch request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code11_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "code11_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code11_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
