package config

import "time"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Release   ReleaseConfig   `koanf:"release"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	TLS             TLSConfig     `koanf:"tls"`
}

type TLSConfig struct {
	Mode     string        `koanf:"mode"` // off, auto, manual
	CertFile string        `koanf:"cert_file"`
	KeyFile  string        `koanf:"key_file"`
	Auto     AutoTLSConfig `koanf:"auto"`
}

type AutoTLSConfig struct {
	Domain   string `koanf:"domain"`
	Email    string `koanf:"email"`
	CacheDir string `koanf:"cache_dir"`
	// ChallengeAddr answers ACME HTTP-01 and redirects to HTTPS.
	ChallengeAddr string `koanf:"challenge_addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// TelemetryConfig controls OTLP export. An empty Endpoint disables it.
type TelemetryConfig struct {
	Endpoint       string        `koanf:"endpoint"`
	Protocol       string        `koanf:"protocol"` // http, grpc
	ServiceName    string        `koanf:"service_name"`
	SampleRate     float64       `koanf:"sample_rate"`
	MetricInterval time.Duration `koanf:"metric_interval"`
	ExportLogs     bool          `koanf:"export_logs"`
}

type RateLimitConfig struct {
	Enabled           bool          `koanf:"enabled"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	Burst             int           `koanf:"burst"`
	IdleTTL           time.Duration `koanf:"idle_ttl"`
}

// ReleaseConfig is the firmware revision currently being served.
type ReleaseConfig struct {
	Path            string         `koanf:"path"`
	RequireLockstep bool           `koanf:"require_lockstep"`
	Controller      FirmwareConfig `koanf:"controller"`
	Node            FirmwareConfig `koanf:"node"`
}

type FirmwareConfig struct {
	Version     string `koanf:"version"`
	FirmwareURL string `koanf:"firmware_url"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			TLS: TLSConfig{
				Mode: "off",
				Auto: AutoTLSConfig{
					CacheDir:      "./data/certs",
					ChallengeAddr: ":80",
				},
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Protocol:       "http",
			ServiceName:    "firmware-versions",
			SampleRate:     1.0,
			MetricInterval: time.Minute,
		},
		// Devices fetch once at boot and skip the update on any non-200, so
		// limiting is opt-in.
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 120,
			Burst:             30,
			IdleTTL:           10 * time.Minute,
		},
		Release: ReleaseConfig{
			Path: "/_functions/softwareversions",
			// Latest published revision; firmware URLs not yet uploaded.
			Controller: FirmwareConfig{Version: "21"},
			Node:       FirmwareConfig{Version: "21"},
		},
	}
}
