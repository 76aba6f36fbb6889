package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteFileAtomic écrit data dans destPath de manière atomique : écriture dans
// un fichier temporaire du même répertoire puis os.Rename(tmp -> dest).
// Crée les répertoires parents si nécessaire.
//
// destPath : chemin complet vers le fichier cible.
// data : contenu à écrire.
// perm : permissions POSIX (ex: 0o644).
func WriteFileAtomic(destPath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(destPath)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// cleanup si échec (après le rename, Remove échoue sans conséquence)
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// best-effort : certains FS ne supportent pas fsync
	_ = tmp.Sync()

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	_ = os.Chmod(tmpName, perm)

	if err := os.Rename(tmpName, destPath); err != nil {
		return fmt.Errorf("rename tmp -> dest: %w", err)
	}
	return nil
}

// SaveExportAtomic écrit content dans outDir sous filename (extension comprise).
// - overwrite=false : si le fichier existe, on ajoute un suffixe _1, _2, ...
// avant l'extension
// - overwrite=true  : on écrase directement
// Retourne le chemin final du fichier.
func SaveExportAtomic(outDir, filename string, content []byte, overwrite bool) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename empty")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", outDir, err)
	}

	final := filepath.Join(outDir, filename)
	if !overwrite {
		final = freeName(outDir, filename)
	}

	if err := WriteFileAtomic(final, content, 0o644); err != nil {
		return "", err
	}
	return final, nil
}

// freeName retourne un chemin inexistant : filename, puis base_1.ext, base_2.ext...
func freeName(outDir, filename string) string {
	final := filepath.Join(outDir, filename)
	if _, err := os.Stat(final); os.IsNotExist(err) {
		return final
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	const maxAttempts = 1000
	for i := 1; i <= maxAttempts; i++ {
		candidate := filepath.Join(outDir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	// au bout des essais : fallback timestamp
	return filepath.Join(outDir, fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))
}
