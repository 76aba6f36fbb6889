package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/patrickprogramme/captionsync/internal/fsutil"
)

// migrations[v] fait passer une config de la version v à v+1.
var migrations = map[int]func(*Config) error{
	0: migrateFromUnversioned,
}

// migrateFromUnversioned : fichier sans config_version. Les sections absentes
// ont déjà reçu les défauts au chargement ; seul le backend est à fixer
// explicitement, un fichier v0 n'en déclarant pas.
func migrateFromUnversioned(cfg *Config) error {
	if cfg.Preferences.Backend == "" {
		cfg.Preferences.Backend = BackendSQLite
	}
	return nil
}

// upgradeConfig sauvegarde le fichier, applique les migrations depuis
// fromVersion puis réécrit le YAML. En cas d'échec d'écriture, le contenu
// sauvegardé est restauré.
func upgradeConfig(cfg *Config, fromVersion int) error {
	if cfg.configFilePath == "" {
		return fmt.Errorf("chemin du fichier de configuration inconnu : sauvegarde impossible")
	}

	original, err := os.ReadFile(cfg.configFilePath)
	if err != nil {
		return fmt.Errorf("lecture du fichier pour sauvegarde impossible : %w", err)
	}
	backupPath := cfg.configFilePath + ".bak." + time.Now().Format("20060102T150405")
	if err := fsutil.WriteFileAtomic(backupPath, original, 0o644); err != nil {
		return fmt.Errorf("écriture de la sauvegarde %s impossible : %w", backupPath, err)
	}

	for v := fromVersion; v < CurrentConfigVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return fmt.Errorf("aucune migration depuis la version %d", v)
		}
		if err := step(cfg); err != nil {
			return fmt.Errorf("migration %d -> %d : %w", v, v+1, err)
		}
	}
	cfg.normalizeConfig()
	cfg.ConfigVersion = CurrentConfigVersion

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encodage YAML de la configuration migrée : %w", err)
	}
	if err := fsutil.WriteFileAtomic(cfg.configFilePath, out, 0o644); err != nil {
		_ = fsutil.WriteFileAtomic(cfg.configFilePath, original, 0o644)
		return fmt.Errorf("écriture du fichier de configuration migré %s : %w", cfg.configFilePath, err)
	}

	cfg.upgrade = &Upgrade{From: fromVersion, To: CurrentConfigVersion, BackupPath: backupPath}
	return nil
}
