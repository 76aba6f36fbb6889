package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickprogramme/captionsync/internal/assets"
	"github.com/patrickprogramme/captionsync/internal/bootstrap"
	"github.com/patrickprogramme/captionsync/internal/prefs"
	"gopkg.in/yaml.v3"
)

const CurrentConfigVersion = 1

// DefaultPath : fichier lu quand --config n'est pas fourni.
const DefaultPath = "captionsync.yaml"

// struct pour les paramètres de configuration
type Config struct {
	// Navigateur (attach)
	DevTools struct {
		Endpoint    string `yaml:"endpoint"`
		TargetMatch string `yaml:"target_match"`
	} `yaml:"devtools"`

	// Délais
	Timing struct {
		StartupDelay      time.Duration `yaml:"startup_delay"`
		SettleDelay       time.Duration `yaml:"settle_delay"`
		LocateInterval    time.Duration `yaml:"locate_interval"`
		LocateMaxAttempts int           `yaml:"locate_max_attempts"`
		SyncInterval      time.Duration `yaml:"sync_interval"`
	} `yaml:"timing"`

	// Téléchargements HTTP
	Fetch struct {
		Timeout   time.Duration `yaml:"timeout"`
		MaxBytes  int64         `yaml:"max_bytes"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"fetch"`

	// Préférences utilisateur
	Preferences struct {
		Backend  string            `yaml:"backend"`
		Path     string            `yaml:"path"`
		Defaults prefs.Preferences `yaml:"defaults"`
		// relecture de la base pendant attach/play (changements d'un autre process)
		WatchInterval time.Duration `yaml:"watch_interval"`
	} `yaml:"preferences"`

	// Page de préférences
	Popup struct {
		Listen string `yaml:"listen"`
		Dir    string `yaml:"dir"`
	} `yaml:"popup"`

	// Export
	Export struct {
		OutputDir string `yaml:"output_dir"`
		Format    string `yaml:"format"`
	} `yaml:"export"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"logging"`

	ConfigVersion int `yaml:"config_version"`

	configFilePath string
	// événements de chargement, journalisés par l'appelant une fois le logger prêt
	created bool
	upgrade *Upgrade
}

// Upgrade décrit une migration appliquée au chargement.
type Upgrade struct {
	From, To   int
	BackupPath string
}

// Configuration par défaut (fallback si l'asset embarqué est manquant)
func defaultConfig() *Config {
	c := &Config{}

	c.DevTools.Endpoint = "http://127.0.0.1:9222"
	c.DevTools.TargetMatch = "youtube.com/"

	c.Timing.StartupDelay = 2 * time.Second
	c.Timing.SettleDelay = 1500 * time.Millisecond
	c.Timing.LocateInterval = 300 * time.Millisecond
	c.Timing.LocateMaxAttempts = 100
	c.Timing.SyncInterval = 100 * time.Millisecond

	c.Fetch.Timeout = 15 * time.Second
	c.Fetch.MaxBytes = 10_000_000
	c.Fetch.UserAgent = "CaptionSync/1.0"

	c.Preferences.Backend = BackendSQLite
	c.Preferences.Path = "captionsync.db"
	c.Preferences.Defaults = prefs.Defaults()
	c.Preferences.WatchInterval = 2 * time.Second

	c.Popup.Listen = ""

	c.Export.OutputDir = "."
	c.Export.Format = "srt"

	c.Logging.Level = "info"
	c.Logging.Format = "console"

	c.ConfigVersion = CurrentConfigVersion

	return c
}

// Backends de préférences acceptés.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default retourne la configuration par défaut, sans fichier.
func Default() *Config {
	c := defaultConfig()
	c.normalizeConfig()
	return c
}

// Load lit la config; si le fichier n'existe pas, on copie l'exemple embarqué depuis internal/assets
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	created, err := bootstrap.EnsureConfigPresent(path, assets.Embedded, assets.DefaultConfigAsset)
	if err != nil {
		return nil, fmt.Errorf("échec de création du fichier de configuration par défaut : %w", err)
	}

	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lecture du fichier de configuration %s impossible : %w", path, err)
	}

	// corriger les chemins Windows avec des backslashes
	data = bytes.ReplaceAll(data, []byte(`\`), []byte(`/`))

	// On déserialise dans cfg initialisé : les champs absents conservent les valeurs par défaut.
	// Un fichier sans config_version est une version 0.
	cfg.ConfigVersion = 0
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("analyse du fichier de configuration %s impossible : %w", path, err)
	}
	cfg.configFilePath = path
	cfg.created = created

	cfg.normalizeConfig()

	// gestion de version : si le fichier est plus ancien -> orchestrer la mise à jour
	if cfg.ConfigVersion < CurrentConfigVersion {
		if err := upgradeConfig(cfg, cfg.ConfigVersion); err != nil {
			return nil, fmt.Errorf("échec de mise à niveau de la configuration : %w", err)
		}
		cfg.normalizeConfig()
	}

	return cfg, nil
}

// Path retourne le chemin du fichier chargé ("" pour Default()).
func (c *Config) Path() string { return c.configFilePath }

// Created indique que le fichier vient d'être créé depuis l'exemple embarqué.
func (c *Config) Created() bool { return c.created }

// Upgraded retourne la migration appliquée au chargement, ou nil.
func (c *Config) Upgraded() *Upgrade { return c.upgrade }

func (c *Config) normalizeConfig() {
	c.DevTools.Endpoint = strings.TrimRight(strings.TrimSpace(c.DevTools.Endpoint), "/")
	c.DevTools.TargetMatch = strings.TrimSpace(c.DevTools.TargetMatch)

	// zéro ou négatif -> défaut
	d := defaultConfig()
	if c.Timing.StartupDelay <= 0 {
		c.Timing.StartupDelay = d.Timing.StartupDelay
	}
	if c.Timing.SettleDelay <= 0 {
		c.Timing.SettleDelay = d.Timing.SettleDelay
	}
	if c.Timing.LocateInterval <= 0 {
		c.Timing.LocateInterval = d.Timing.LocateInterval
	}
	if c.Timing.LocateMaxAttempts <= 0 {
		c.Timing.LocateMaxAttempts = d.Timing.LocateMaxAttempts
	}
	if c.Timing.SyncInterval <= 0 {
		c.Timing.SyncInterval = d.Timing.SyncInterval
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = d.Fetch.Timeout
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = d.Fetch.MaxBytes
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = d.Fetch.UserAgent
	}

	c.Preferences.Backend = strings.ToLower(strings.TrimSpace(c.Preferences.Backend))
	if c.Preferences.Backend == "" {
		c.Preferences.Backend = BackendSQLite
	}
	if c.Preferences.Path = strings.TrimSpace(c.Preferences.Path); c.Preferences.Path != "" {
		c.Preferences.Path = filepath.Clean(c.Preferences.Path)
	}
	if c.Preferences.WatchInterval <= 0 {
		c.Preferences.WatchInterval = d.Preferences.WatchInterval
	}
	c.Preferences.Defaults.Language = strings.TrimSpace(c.Preferences.Defaults.Language)
	if c.Preferences.Defaults.Language == "" {
		c.Preferences.Defaults.Language = d.Preferences.Defaults.Language
	}

	c.Popup.Listen = strings.TrimSpace(c.Popup.Listen)
	if c.Popup.Dir = strings.TrimSpace(c.Popup.Dir); c.Popup.Dir != "" {
		c.Popup.Dir = filepath.Clean(c.Popup.Dir)
	}

	c.Export.OutputDir = filepath.Clean(c.Export.OutputDir)
	c.Export.Format = strings.TrimSpace(strings.ToLower(c.Export.Format))
	if c.Export.Format == "" {
		c.Export.Format = d.Export.Format
	}

	c.Logging.Level = strings.TrimSpace(strings.ToLower(c.Logging.Level))
	c.Logging.Format = strings.TrimSpace(strings.ToLower(c.Logging.Format))
	c.Logging.File = strings.TrimSpace(c.Logging.File)
}
