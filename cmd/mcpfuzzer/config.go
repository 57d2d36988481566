package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rcourtman/mcp-fuzzer/internal/config"
)

// fileConfig mirrors config.Config's shape for YAML decoding. A thin
// pass-through struct keeps internal/config free of yaml tags, per the
// core's "no parsing logic" boundary.
type fileConfig struct {
	Transport struct {
		Kind      string   `yaml:"kind"`
		Endpoint  string   `yaml:"endpoint"`
		TimeoutMS int      `yaml:"timeout_ms"`
		Command   []string `yaml:"command"`
	} `yaml:"transport"`
	Fuzz struct {
		Mode           string `yaml:"mode"`
		Phase          string `yaml:"phase"`
		Runs           int    `yaml:"runs"`
		RunsPerType    int    `yaml:"runs_per_type"`
		MaxConcurrency int    `yaml:"max_concurrency"`
		ToolTimeoutMS  int    `yaml:"tool_timeout_ms"`
		GenerateOnly   bool   `yaml:"generate_only"`
	} `yaml:"fuzz"`
	Safety struct {
		Enabled              bool     `yaml:"enabled"`
		FSRoot               string   `yaml:"fs_root"`
		AllowedHosts         []string `yaml:"allowed_hosts"`
		NoNetwork            bool     `yaml:"no_network"`
		EnableSystemBlocking bool     `yaml:"enable_system_blocking"`
	} `yaml:"safety"`
	Watchdog struct {
		CheckIntervalMS  int  `yaml:"check_interval_ms"`
		ProcessTimeoutMS int  `yaml:"process_timeout_ms"`
		ExtraBufferMS    int  `yaml:"extra_buffer_ms"`
		MaxHangTimeMS    int  `yaml:"max_hang_time_ms"`
		AutoKill         bool `yaml:"auto_kill"`
	} `yaml:"watchdog"`
	Auth        map[string]string `yaml:"auth"`
	MetricsAddr string            `yaml:"metrics_addr"`
}

// loadConfig builds a config.Config from, in ascending priority: compiled
// defaults, a YAML file (if configPath is non-empty and exists), a .env
// file in the working directory (read with godotenv the way cmd/pulse's
// config watcher does), then environment variable overrides, then cobra
// flag overrides applied by the caller.
func loadConfig(configPath string) (config.Config, error) {
	cfg := config.Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return cfg, fmt.Errorf("reading config file: %w", err)
			}
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return cfg, fmt.Errorf("parsing config file: %w", err)
			}
			applyFileConfig(&cfg, fc)
			log.Info().Str("config_file", configPath).Msg("loaded configuration from file")
		} else {
			log.Warn().Str("config_file", configPath).Msg("config file not found, using defaults")
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg(".env not loaded")
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyFileConfig(cfg *config.Config, fc fileConfig) {
	if fc.Transport.Kind != "" {
		cfg.Transport.Kind = config.TransportKind(fc.Transport.Kind)
	}
	if fc.Transport.Endpoint != "" {
		cfg.Transport.Endpoint = fc.Transport.Endpoint
	}
	if fc.Transport.TimeoutMS > 0 {
		cfg.Transport.TimeoutMS = fc.Transport.TimeoutMS
	}
	if len(fc.Transport.Command) > 0 {
		cfg.Transport.Command = fc.Transport.Command
	}

	if fc.Fuzz.Mode != "" {
		cfg.Fuzz.Mode = config.FuzzMode(fc.Fuzz.Mode)
	}
	if fc.Fuzz.Phase != "" {
		cfg.Fuzz.Phase = config.FuzzPhase(fc.Fuzz.Phase)
	}
	if fc.Fuzz.Runs > 0 {
		cfg.Fuzz.Runs = fc.Fuzz.Runs
	}
	if fc.Fuzz.RunsPerType > 0 {
		cfg.Fuzz.RunsPerType = fc.Fuzz.RunsPerType
	}
	if fc.Fuzz.MaxConcurrency > 0 {
		cfg.Fuzz.MaxConcurrency = fc.Fuzz.MaxConcurrency
	}
	if fc.Fuzz.ToolTimeoutMS > 0 {
		cfg.Fuzz.ToolTimeoutMS = fc.Fuzz.ToolTimeoutMS
	}
	cfg.Fuzz.GenerateOnly = fc.Fuzz.GenerateOnly

	cfg.Safety.Enabled = fc.Safety.Enabled
	if fc.Safety.FSRoot != "" {
		cfg.Safety.FSRoot = fc.Safety.FSRoot
	}
	if len(fc.Safety.AllowedHosts) > 0 {
		cfg.Safety.AllowedHosts = fc.Safety.AllowedHosts
	}
	cfg.Safety.NoNetwork = fc.Safety.NoNetwork
	cfg.Safety.EnableSystemBlocking = fc.Safety.EnableSystemBlocking

	if fc.Watchdog.CheckIntervalMS > 0 {
		cfg.Watchdog.CheckIntervalMS = fc.Watchdog.CheckIntervalMS
	}
	if fc.Watchdog.ProcessTimeoutMS > 0 {
		cfg.Watchdog.ProcessTimeoutMS = fc.Watchdog.ProcessTimeoutMS
	}
	if fc.Watchdog.ExtraBufferMS > 0 {
		cfg.Watchdog.ExtraBufferMS = fc.Watchdog.ExtraBufferMS
	}
	if fc.Watchdog.MaxHangTimeMS > 0 {
		cfg.Watchdog.MaxHangTimeMS = fc.Watchdog.MaxHangTimeMS
	}
	cfg.Watchdog.AutoKill = fc.Watchdog.AutoKill

	if len(fc.Auth) > 0 {
		cfg.Auth = fc.Auth
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
}

// applyFlagOverrides applies cobra/pflag values over whatever the
// file/env layers produced — the final, highest-priority layer per
// loadConfig's doc comment. Only flags the caller actually set (Changed)
// take effect, so an unset flag never clobbers a file/env value with its
// zero default.
func applyFlagOverrides(cfg *config.Config, flags *pflag.FlagSet) {
	if v, err := flags.GetString("transport"); err == nil && flags.Changed("transport") {
		cfg.Transport.Kind = config.TransportKind(v)
	}
	if v, err := flags.GetString("endpoint"); err == nil && flags.Changed("endpoint") {
		cfg.Transport.Endpoint = v
	}
	if v, err := flags.GetString("mode"); err == nil && flags.Changed("mode") {
		cfg.Fuzz.Mode = config.FuzzMode(v)
	}
	if v, err := flags.GetString("phase"); err == nil && flags.Changed("phase") {
		cfg.Fuzz.Phase = config.FuzzPhase(v)
	}
	if v, err := flags.GetInt("runs"); err == nil && flags.Changed("runs") {
		cfg.Fuzz.Runs = v
	}
	if v, err := flags.GetInt("runs-per-type"); err == nil && flags.Changed("runs-per-type") {
		cfg.Fuzz.RunsPerType = v
	}
	if v, err := flags.GetInt("concurrency"); err == nil && flags.Changed("concurrency") {
		cfg.Fuzz.MaxConcurrency = v
	}
	if v, err := flags.GetBool("generate-only"); err == nil && flags.Changed("generate-only") {
		cfg.Fuzz.GenerateOnly = v
	}
}

// applyEnvOverrides applies MCPFUZZER_* environment variables over
// whatever the file/defaults produced, the same override-last ordering
// cmd/pulse-sensor-proxy uses for its PULSE_SENSOR_PROXY_* variables.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("MCPFUZZER_TRANSPORT_KIND"); v != "" {
		cfg.Transport.Kind = config.TransportKind(v)
	}
	if v := os.Getenv("MCPFUZZER_ENDPOINT"); v != "" {
		cfg.Transport.Endpoint = v
	}
	if v := os.Getenv("MCPFUZZER_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transport.TimeoutMS = n
		}
	}
	if v := os.Getenv("MCPFUZZER_COMMAND"); v != "" {
		cfg.Transport.Command = strings.Fields(v)
	}
	if v := os.Getenv("MCPFUZZER_MODE"); v != "" {
		cfg.Fuzz.Mode = config.FuzzMode(v)
	}
	if v := os.Getenv("MCPFUZZER_PHASE"); v != "" {
		cfg.Fuzz.Phase = config.FuzzPhase(v)
	}
	if v := os.Getenv("MCPFUZZER_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Fuzz.Runs = n
		}
	}
	if v := os.Getenv("MCPFUZZER_ALLOWED_HOSTS"); v != "" {
		cfg.Safety.AllowedHosts = strings.Split(v, ",")
	}
	if v := os.Getenv("MCPFUZZER_FS_ROOT"); v != "" {
		cfg.Safety.FSRoot = v
	}
	if v := os.Getenv("MCPFUZZER_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("MCPFUZZER_AUTH_BEARER"); v != "" {
		if cfg.Auth == nil {
			cfg.Auth = map[string]string{}
		}
		cfg.Auth["Authorization"] = "Bearer " + v
	}
}
