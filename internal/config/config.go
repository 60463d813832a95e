package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Limits are the resource limits applied to every session container.
type Limits struct {
	CPULimit    float64 `yaml:"cpu_limit"`
	MemLimitMB  int     `yaml:"mem_limit_mb"`
	PidsLimit   int     `yaml:"pids_limit"`
	NetworkMode string  `yaml:"network_mode"`
}

// TerminalConfig tunes the terminal streaming bridge.
type TerminalConfig struct {
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"` // 0 = no idle timeout
	ChunkBytes         int `yaml:"chunk_bytes"`
}

type Config struct {
	Listen             string         `yaml:"listen"`
	APIKey             string         `yaml:"api_key"`
	Image              string         `yaml:"image"`
	DBPath             string         `yaml:"db_path"`
	Shell              string         `yaml:"shell"`
	StopTimeoutSeconds int            `yaml:"stop_timeout_seconds"`
	IdleSuspendSeconds int            `yaml:"idle_suspend_seconds"` // 0 = reaper never suspends
	TrashRetentionHrs  int            `yaml:"trash_retention_hours"` // 0 = trash kept forever
	Limits             Limits         `yaml:"limits"`
	Terminal           TerminalConfig `yaml:"terminal"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Listen:             "127.0.0.1:8080",
		Image:              "werkbank-workspace:base",
		DBPath:             "./werkbank.db",
		Shell:              "/bin/bash",
		StopTimeoutSeconds: 10,
		IdleSuspendSeconds: 0,
		TrashRetentionHrs:  0,
		Limits: Limits{
			CPULimit:    1.0,
			MemLimitMB:  1024,
			PidsLimit:   512,
			NetworkMode: "bridge",
		},
		Terminal: TerminalConfig{
			IdleTimeoutSeconds: 0,
			ChunkBytes:         32 * 1024,
		},
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WERKBANK_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("WERKBANK_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("WERKBANK_IMAGE"); v != "" {
		cfg.Image = v
	}
	if v := os.Getenv("WERKBANK_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WERKBANK_SHELL"); v != "" {
		cfg.Shell = v
	}
	if v := os.Getenv("WERKBANK_STOP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StopTimeoutSeconds = n
		}
	}
	if v := os.Getenv("WERKBANK_IDLE_SUSPEND_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IdleSuspendSeconds = n
		}
	}
	if v := os.Getenv("WERKBANK_TRASH_RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TrashRetentionHrs = n
		}
	}
	if v := os.Getenv("WERKBANK_CPU_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limits.CPULimit = f
		}
	}
	if v := os.Getenv("WERKBANK_MEM_LIMIT_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MemLimitMB = n
		}
	}
	if v := os.Getenv("WERKBANK_PIDS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.PidsLimit = n
		}
	}
	if v := os.Getenv("WERKBANK_NETWORK_MODE"); v != "" {
		cfg.Limits.NetworkMode = v
	}
	if v := os.Getenv("WERKBANK_TERMINAL_IDLE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Terminal.IdleTimeoutSeconds = n
		}
	}
}
