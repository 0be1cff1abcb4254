package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "harbor"

// Prediction outcomes recorded by the predictions counter.
const (
	outcomeSuccess         = "success"
	outcomeValidationError = "validation_error"
	outcomePredictionError = "prediction_error"
)

type serverMetrics struct {
	requests    *prometheus.CounterVec
	predictions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by matched route and status code.",
			}, []string{"route", "status"}),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Prediction attempts by endpoint and outcome.",
			}, []string{"endpoint", "outcome"}),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prediction_duration_seconds",
				Help:      "Time spent validating input and computing a prediction.",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
			}, []string{"endpoint"}),
	}
	reg.MustRegister(m.requests, m.predictions, m.latency)
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
