package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/models"

	"gopkg.in/yaml.v3"
)

const defaultPath = "rfm.yaml"

// Config regroupe la source, la sortie et les paramètres de calcul.
// Priorité : fichier YAML < variables d'environnement < flags (appliqués par main).
type Config struct {
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	Input   string `yaml:"input"`
	Sheet   string `yaml:"sheet"`
	Output  string `yaml:"output"`
	Treemap string `yaml:"treemap"`

	ReferenceDate string `yaml:"reference_date"` // YYYY-MM-DD
	Since         string `yaml:"since"`          // MMYYYY
	Until         string `yaml:"until"`          // MMYYYY
	Bins          int    `yaml:"bins"`
	StrictBins    bool   `yaml:"strict_bins"`
	Segmentation  string `yaml:"segmentation"`

	Columns     models.ColumnMapping `yaml:"columns"`
	DateLayouts []string             `yaml:"date_layouts"`
	Segments    []models.SegmentSpec `yaml:"segments"`

	Verbose bool `yaml:"verbose"`

	Reference time.Time `yaml:"-"` // rempli par Validate
}

// Load lit le fichier (path, sinon $RFM_CONFIG, sinon rfm.yaml s'il existe),
// applique les variables d'environnement puis les valeurs par défaut.
// Un path explicite qui n'existe pas est une erreur.
func Load(path string) (Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = os.Getenv("RFM_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = defaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Printf("[INFO] loaded config from %s", path)
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// Env vars override YAML values
	envOverride(&cfg.DSN, "RFM_DSN")
	envOverride(&cfg.Table, "RFM_TABLE")
	envOverride(&cfg.Input, "RFM_INPUT")
	envOverride(&cfg.Output, "RFM_OUTPUT")
	envOverride(&cfg.ReferenceDate, "RFM_REFERENCE_DATE")
	envOverride(&cfg.Segmentation, "RFM_SEGMENTATION")
	if err := envOverrideInt(&cfg.Bins, "RFM_BINS"); err != nil {
		return cfg, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bins == 0 {
		c.Bins = 5
	}
	if c.Segmentation == "" {
		c.Segmentation = models.SegmentationRules
	}
	if c.Output == "" {
		c.Output = "rfm.csv"
	}
	if c.Columns.Customer == "" {
		c.Columns.Customer = models.DefaultColumns.Customer
	}
	if c.Columns.Date == "" {
		c.Columns.Date = models.DefaultColumns.Date
	}
	if c.Columns.Amount == "" {
		c.Columns.Amount = models.DefaultColumns.Amount
	}
}

// Validate vérifie la cohérence de la configuration et remplit Reference.
func (c *Config) Validate() error {
	switch {
	case c.DSN == "" && c.Input == "":
		return fmt.Errorf("one of dsn or input is required")
	case c.DSN != "" && c.Input != "":
		return fmt.Errorf("dsn and input are mutually exclusive")
	case c.DSN != "" && c.Table == "":
		return fmt.Errorf("table is required with dsn")
	}
	if c.Bins < 1 || c.Bins > 9 {
		return fmt.Errorf("invalid bins '%d': must be between 1 and 9", c.Bins)
	}
	switch c.Segmentation {
	case models.SegmentationRules:
		if len(c.Segments) > 0 {
			if _, err := calculator.RulesFromSpecs(c.Segments); err != nil {
				return fmt.Errorf("segments: %w", err)
			}
		}
	case models.SegmentationStatistical:
		if len(c.Segments) > 0 {
			return fmt.Errorf("segments cannot be combined with segmentation '%s'", c.Segmentation)
		}
	default:
		return fmt.Errorf("segmentation must be '%s' or '%s', got '%s'",
			models.SegmentationRules, models.SegmentationStatistical, c.Segmentation)
	}
	if c.ReferenceDate != "" {
		ref, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(c.ReferenceDate), time.UTC)
		if err != nil {
			return fmt.Errorf("invalid reference_date '%s': %w", c.ReferenceDate, err)
		}
		// fin de journée : les achats du jour de référence restent valides
		c.Reference = ref.Add(24*time.Hour - time.Nanosecond)
	}
	return nil
}

// Calculator extrait les paramètres passés à calculator.Run.
func (c Config) Calculator() models.Config {
	return models.Config{
		Reference:    c.Reference,
		Since:        c.Since,
		Until:        c.Until,
		Bins:         c.Bins,
		StrictBins:   c.StrictBins,
		Segmentation: c.Segmentation,
		Segments:     c.Segments,
		Verbose:      c.Verbose,
	}
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
