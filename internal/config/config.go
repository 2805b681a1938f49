package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`
}

type WorkersConfig struct {
	// URLs is the fixed worker fleet. Normally supplied via V9_WORKERS as a
	// semicolon-separated list; empty entries are skipped.
	URLs []string `json:"urls"`

	// Timeout bounds every single HTTP call to a worker.
	Timeout Duration `json:"timeout"`

	// RefreshInterval is how often the routing table is rebuilt. This is
	// sensitive to how quickly the deployment manager makes changes.
	RefreshInterval Duration `json:"refresh_interval"`
}

type Config struct {
	Env     string        `json:"env"`
	HTTP    HTTPConfig    `json:"http"`
	Workers WorkersConfig `json:"workers"`
}
