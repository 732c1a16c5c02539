package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "VERSIONS_"

func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	defaults := defaultsProvider(Defaults())
	if err := k.Load(defaults, nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Load from config file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
		}
	} else {
		for _, path := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("loading config file: %w", err)
				}
				break
			}
		}
	}

	// 3. Load from environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyMapper(defaults.keys())), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// 4. Load from CLI flags
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// 6. Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// envKeyMapper turns VERSIONS_RELEASE_NODE_FIRMWARE_URL into
// release.node.firmware_url. Underscores are ambiguous between nesting and
// leaf names, so known keys are matched first; anything else nests on every
// underscore.
func envKeyMapper(known []string) func(string) string {
	byEnv := make(map[string]string, len(known))
	for _, key := range known {
		byEnv[strings.ReplaceAll(key, ".", "_")] = key
	}
	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key, ok := byEnv[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}
}

type defaultsProviderStruct struct {
	defaults *Config
}

func defaultsProvider(defaults *Config) *defaultsProviderStruct {
	return &defaultsProviderStruct{defaults: defaults}
}

func (d *defaultsProviderStruct) ReadBytes() ([]byte, error) {
	return nil, nil
}

func (d *defaultsProviderStruct) Read() (map[string]interface{}, error) {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host":             d.defaults.Server.Host,
			"port":             d.defaults.Server.Port,
			"allowed_origins":  d.defaults.Server.AllowedOrigins,
			"shutdown_timeout": d.defaults.Server.ShutdownTimeout.String(),
			"tls": map[string]interface{}{
				"mode":      d.defaults.Server.TLS.Mode,
				"cert_file": d.defaults.Server.TLS.CertFile,
				"key_file":  d.defaults.Server.TLS.KeyFile,
				"auto": map[string]interface{}{
					"domain":         d.defaults.Server.TLS.Auto.Domain,
					"email":          d.defaults.Server.TLS.Auto.Email,
					"cache_dir":      d.defaults.Server.TLS.Auto.CacheDir,
					"challenge_addr": d.defaults.Server.TLS.Auto.ChallengeAddr,
				},
			},
		},
		"log": map[string]interface{}{
			"level":  d.defaults.Log.Level,
			"format": d.defaults.Log.Format,
		},
		"telemetry": map[string]interface{}{
			"endpoint":        d.defaults.Telemetry.Endpoint,
			"protocol":        d.defaults.Telemetry.Protocol,
			"service_name":    d.defaults.Telemetry.ServiceName,
			"sample_rate":     d.defaults.Telemetry.SampleRate,
			"metric_interval": d.defaults.Telemetry.MetricInterval.String(),
			"export_logs":     d.defaults.Telemetry.ExportLogs,
		},
		"rate_limit": map[string]interface{}{
			"enabled":             d.defaults.RateLimit.Enabled,
			"requests_per_minute": d.defaults.RateLimit.RequestsPerMinute,
			"burst":               d.defaults.RateLimit.Burst,
			"idle_ttl":            d.defaults.RateLimit.IdleTTL.String(),
		},
		"release": map[string]interface{}{
			"path":             d.defaults.Release.Path,
			"require_lockstep": d.defaults.Release.RequireLockstep,
			"controller": map[string]interface{}{
				"version":      d.defaults.Release.Controller.Version,
				"firmware_url": d.defaults.Release.Controller.FirmwareURL,
			},
			"node": map[string]interface{}{
				"version":      d.defaults.Release.Node.Version,
				"firmware_url": d.defaults.Release.Node.FirmwareURL,
			},
		},
	}, nil
}

// keys returns every leaf key of the defaults tree in dotted form.
func (d *defaultsProviderStruct) keys() []string {
	m, _ := d.Read()
	var out []string
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			if child, ok := v.(map[string]interface{}); ok {
				walk(prefix+k+".", child)
				continue
			}
			out = append(out, prefix+k)
		}
	}
	walk("", m)
	return out
}

func SetupFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("versions", pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("server.host", "", "Server host")
	flags.Int("server.port", 0, "Server port")
	flags.StringSlice("server.allowed_origins", nil, "Allowed CORS origins")
	flags.Duration("server.shutdown_timeout", 0, "Graceful shutdown timeout")
	flags.String("server.tls.mode", "", "TLS mode: off, auto, or manual")
	flags.String("server.tls.cert_file", "", "TLS certificate file (manual mode)")
	flags.String("server.tls.key_file", "", "TLS key file (manual mode)")
	flags.String("server.tls.auto.domain", "", "Domain for automatic TLS (auto mode)")
	flags.String("server.tls.auto.email", "", "Contact email for Let's Encrypt (auto mode)")
	flags.String("server.tls.auto.cache_dir", "", "Certificate cache directory (auto mode)")
	flags.String("server.tls.auto.challenge_addr", "", "Listener for ACME HTTP-01 challenges (auto mode)")
	flags.String("log.level", "", "Log level: debug, info, warn, error")
	flags.String("log.format", "", "Log format: text or json")
	flags.String("telemetry.endpoint", "", "OTLP collector endpoint (empty disables telemetry)")
	flags.String("telemetry.protocol", "", "OTLP protocol: http or grpc")
	flags.Bool("telemetry.export_logs", false, "Export logs over OTLP")
	flags.Bool("rate_limit.enabled", false, "Enable per-IP rate limiting")
	flags.String("release.path", "", "Route serving the version document")
	flags.Bool("release.require_lockstep", false, "Reject configs where controller and node versions differ")
	flags.String("release.controller.version", "", "Controller firmware version")
	flags.String("release.controller.firmware_url", "", "Controller firmware download URL")
	flags.String("release.node.version", "", "Node firmware version")
	flags.String("release.node.firmware_url", "", "Node firmware download URL")
	return flags
}
