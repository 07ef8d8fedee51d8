package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_worker_items_total",
		Help: "Total number of work items handled, by outcome",
	}, []string{"outcome"})

	ProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frames_worker_processing_duration_seconds",
		Help:    "Duration of video processing pipeline",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_worker_frames_extracted_total",
		Help: "Total number of frames extracted across all videos",
	})

	InFlightItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frames_worker_in_flight_items",
		Help: "Number of work items currently being processed",
	})

	QueueErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_worker_queue_errors_total",
		Help: "Queue transport failures, by operation",
	}, []string{"operation"})

	ConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frames_worker_consecutive_failures",
		Help: "Poll loop failures since the last successful iteration",
	})

	BackoffDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frames_worker_backoff_delay_seconds",
		Help:    "Delay applied by the poll loop after a failure",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 30, 60},
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_worker_notifications_total",
		Help: "Failure notifications, by result",
	}, []string{"result"})
)
