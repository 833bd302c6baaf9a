package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultFormulasFile     = "formulas.txt"
	DefaultAllWord          = "all"
	DefaultReportFormat     = "text"
	DefaultReminderSchedule = "0 19 * * *"
	DefaultExportDB         = "snapshots.db"
)

var DefaultExitWords = []string{"exit", "quit", "выход"}

type Config struct {
	Formulas FormulasConfig `json:"formulas"`
	Training TrainingConfig `json:"training"`
	Report   ReportConfig   `json:"report"`
	Reminder ReminderConfig `json:"reminder"`
	Export   ExportConfig   `json:"export"`
	Log      LogConfig      `json:"log"`
}

type FormulasConfig struct {
	Path string `json:"path"`
}

type TrainingConfig struct {
	ExitWords []string `json:"exitWords"`
	AllWords  []string `json:"allWords"`
	Seed      uint64   `json:"seed,omitempty"` // 0 = seeded from time
}

type ReportConfig struct {
	Format string `json:"format"` // "text" (default), "json" or "yaml"
}

type ReminderConfig struct {
	Schedule string `json:"schedule"`
}

type ExportConfig struct {
	DBPath string `json:"dbPath,omitempty"`
}

type LogConfig struct {
	Verbose bool `json:"verbose"`
}

func DefaultConfig() *Config {
	return &Config{
		Formulas: FormulasConfig{
			Path: filepath.Join(ConfigDir(), DefaultFormulasFile),
		},
		Training: TrainingConfig{
			ExitWords: append([]string(nil), DefaultExitWords...),
			AllWords:  []string{DefaultAllWord, "все"},
		},
		Report: ReportConfig{
			Format: DefaultReportFormat,
		},
		Reminder: ReminderConfig{
			Schedule: DefaultReminderSchedule,
		},
		Export: ExportConfig{
			DBPath: filepath.Join(ConfigDir(), DefaultExportDB),
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".formula-trainer")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if path := os.Getenv("FORMULA_TRAINER_FORMULAS"); path != "" {
		cfg.Formulas.Path = path
	}
	if seed := os.Getenv("FORMULA_TRAINER_SEED"); seed != "" {
		if parsed, err := strconv.ParseUint(seed, 10, 64); err == nil {
			cfg.Training.Seed = parsed
		}
	}
	if format := os.Getenv("FORMULA_TRAINER_REPORT_FORMAT"); format != "" {
		cfg.Report.Format = format
	}
	if schedule := os.Getenv("FORMULA_TRAINER_REMINDER"); schedule != "" {
		cfg.Reminder.Schedule = schedule
	}
	if dbPath := os.Getenv("FORMULA_TRAINER_EXPORT_DB"); dbPath != "" {
		cfg.Export.DBPath = dbPath
	}
	if verbose := os.Getenv("FORMULA_TRAINER_VERBOSE"); verbose != "" {
		if parsed, err := strconv.ParseBool(verbose); err == nil {
			cfg.Log.Verbose = parsed
		}
	}

	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.Formulas.Path) == "" {
		cfg.Formulas.Path = defaults.Formulas.Path
	}
	if len(cfg.Training.ExitWords) == 0 {
		cfg.Training.ExitWords = defaults.Training.ExitWords
	}
	if len(cfg.Training.AllWords) == 0 {
		cfg.Training.AllWords = defaults.Training.AllWords
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = DefaultReportFormat
	}
	if cfg.Reminder.Schedule == "" {
		cfg.Reminder.Schedule = DefaultReminderSchedule
	}
	if cfg.Export.DBPath == "" {
		cfg.Export.DBPath = defaults.Export.DBPath
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
