package config

type Config struct {
	// FFmpegPath is the encoder binary. Empty means locate via $FFMPEG or $PATH.
	FFmpegPath string

	EncoderThreads int
	EncoderSlices  int

	// EncoderQueueDepth bounds the number of frame pairs waiting for the
	// encoder. The acquisition loop blocks when it is full.
	EncoderQueueDepth int

	ReadTimeoutMs int

	// PrintInterval is the number of accepted frames between progress reports.
	PrintInterval int

	// If non-zero, host /metrics and /status on this port.
	MetricsPort int

	// If set, finished sessions are recorded in this MySQL database.
	CatalogDSN string
}

func Default() *Config {
	return &Config{
		EncoderThreads:    6,
		EncoderSlices:     24,
		EncoderQueueDepth: 512,
		ReadTimeoutMs:     1000,
		PrintInterval:     15,
	}
}
