// Package metrics holds the prometheus collectors shared by the acquisition
// pipeline. They are served by the serve package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "depthcam"

var (
	FramesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_accepted_total",
		Help:      "Frame sets transformed and queued for encoding.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Device reads that timed out.",
	})

	BundlesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bundles_skipped_total",
		Help:      "Frame sets missing a depth or IR frame.",
	})

	PreviewDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preview_dropped_total",
		Help:      "Stale frames discarded by the preview.",
	})

	EncodedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "encoded_frames_total",
		Help:      "Frames written to an encoder pipe.",
	}, []string{"stream"})

	EncodedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "encoded_bytes_total",
		Help:      "Raw bytes written to an encoder pipe.",
	}, []string{"stream"})

	EncoderQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "encoder_queue_length",
		Help:      "Frame pairs waiting for the encoder.",
	})

	FrameRate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "frame_rate",
		Help:      "Running average frame rate of the current session.",
	})
)
