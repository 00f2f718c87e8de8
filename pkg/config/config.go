package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"market-insights/pkg/models"
)

const DefaultPath = "config.yaml"

// Load lit le fichier YAML (absent = pas d'erreur), applique les variables MI_* puis les valeurs par défaut.
// path vide → $MI_CONFIG, sinon config.yaml.
func Load(path string) (models.Config, string, error) {
	var cfg models.Config

	if path == "" {
		path = DefaultPath
		if envPath := os.Getenv("MI_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	loaded := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		loaded = path
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}

	// Env vars override YAML values
	envOverride(&cfg.Input, "MI_INPUT")
	envOverride(&cfg.Sheet, "MI_SHEET")
	envOverride(&cfg.DSN, "MI_DSN")
	envOverride(&cfg.Query, "MI_QUERY")
	envOverride(&cfg.Columns.Customer, "MI_CUSTOMER_COLUMN")
	envOverride(&cfg.Columns.Product, "MI_PRODUCT_COLUMN")
	envOverride(&cfg.Columns.Quantity, "MI_QUANTITY_COLUMN")
	envOverride(&cfg.Columns.Date, "MI_DATE_COLUMN")
	envOverride(&cfg.Columns.Price, "MI_PRICE_COLUMN")
	envOverride(&cfg.StartMonthInclusive, "MI_START_MONTH")
	envOverride(&cfg.EndMonthInclusive, "MI_END_MONTH")
	if err := envOverrideInt(&cfg.Clusters, "MI_CLUSTERS"); err != nil {
		return cfg, "", err
	}
	if err := envOverrideInt(&cfg.ForecastHorizon, "MI_FORECAST_HORIZON"); err != nil {
		return cfg, "", err
	}
	if err := envOverrideInt(&cfg.MinHistoryMonths, "MI_MIN_HISTORY_MONTHS"); err != nil {
		return cfg, "", err
	}
	if err := envOverrideFloat(&cfg.MinSupport, "MI_MIN_SUPPORT"); err != nil {
		return cfg, "", err
	}
	if err := envOverrideFloat(&cfg.MinConfidence, "MI_MIN_CONFIDENCE"); err != nil {
		return cfg, "", err
	}
	if v := os.Getenv("MI_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, "", fmt.Errorf("MI_SEED: %w", err)
		}
		cfg.Seed = n
	}
	if v := os.Getenv("MI_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, "", fmt.Errorf("MI_VERBOSE: %w", err)
		}
		cfg.Verbose = b
	}

	ApplyDefaults(&cfg)
	return cfg, loaded, nil
}

// ApplyDefaults complète les seuils non renseignés.
func ApplyDefaults(cfg *models.Config) {
	if cfg.MinSupport == 0 {
		cfg.MinSupport = 0.05
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.60
	}
	if cfg.ForecastHorizon == 0 {
		cfg.ForecastHorizon = 3
	}
	if cfg.MinHistoryMonths == 0 {
		cfg.MinHistoryMonths = 6
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envOverrideFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}
