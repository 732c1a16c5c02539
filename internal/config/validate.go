package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

func Validate(cfg *Config) error {
	var errs []error

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	if cfg.Server.ShutdownTimeout < time.Second {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be at least 1s"))
	}

	// Allowed origins validation
	for i, origin := range cfg.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins[%d] %q is not a valid URL with scheme", i, origin))
		}
	}

	// TLS validation
	switch cfg.Server.TLS.Mode {
	case "", "off":
		// no additional validation needed
	case "auto":
		if cfg.Server.TLS.Auto.Domain == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.domain is required when tls mode is auto"))
		}
		if cfg.Server.TLS.Auto.CacheDir == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.cache_dir is required when tls mode is auto"))
		}
		if _, _, err := net.SplitHostPort(cfg.Server.TLS.Auto.ChallengeAddr); err != nil {
			errs = append(errs, fmt.Errorf("server.tls.auto.challenge_addr must be host:port: %w", err))
		}
	case "manual":
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.cert_file is required when tls mode is manual"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.key_file is required when tls mode is manual"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.tls.mode must be off, auto, or manual"))
	}

	// Log validation
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error"))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	// Telemetry validation (only when an endpoint is set)
	if cfg.Telemetry.Endpoint != "" {
		switch cfg.Telemetry.Protocol {
		case "http", "grpc":
		default:
			errs = append(errs, fmt.Errorf("telemetry.protocol must be http or grpc"))
		}
		if cfg.Telemetry.ServiceName == "" {
			errs = append(errs, fmt.Errorf("telemetry.service_name is required when telemetry is enabled"))
		}
		if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1"))
		}
		if cfg.Telemetry.MetricInterval < time.Second {
			errs = append(errs, fmt.Errorf("telemetry.metric_interval must be at least 1s"))
		}
	}

	// Rate limit validation (only when enabled)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerMinute < 1 {
			errs = append(errs, fmt.Errorf("rate_limit.requests_per_minute must be at least 1"))
		}
		if cfg.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1"))
		}
		if cfg.RateLimit.IdleTTL < time.Second {
			errs = append(errs, fmt.Errorf("rate_limit.idle_ttl must be at least 1s"))
		}
	}

	// Release validation
	if !strings.HasPrefix(cfg.Release.Path, "/") {
		errs = append(errs, fmt.Errorf("release.path must start with /"))
	}
	for _, fw := range []struct {
		name string
		cfg  FirmwareConfig
	}{
		{"release.controller", cfg.Release.Controller},
		{"release.node", cfg.Release.Node},
	} {
		if strings.TrimSpace(fw.cfg.Version) == "" {
			errs = append(errs, fmt.Errorf("%s.version is required", fw.name))
		}
		// An empty URL is a valid placeholder for firmware not yet published.
		if fw.cfg.FirmwareURL != "" {
			u, err := url.Parse(fw.cfg.FirmwareURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, fmt.Errorf("%s.firmware_url %q is not a valid http(s) URL", fw.name, fw.cfg.FirmwareURL))
			}
		}
	}
	if cfg.Release.RequireLockstep && cfg.Release.Controller.Version != cfg.Release.Node.Version {
		errs = append(errs, fmt.Errorf("release.controller.version %q and release.node.version %q must match when release.require_lockstep is set",
			cfg.Release.Controller.Version, cfg.Release.Node.Version))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
