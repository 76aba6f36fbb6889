package bootstrap

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/patrickprogramme/captionsync/internal/fsutil"
)

// ExportStatus : sort d'un fichier lors d'un ExportDefaults.
type ExportStatus string

const (
	StatusWritten     ExportStatus = "written"
	StatusUnchanged   ExportStatus = "unchanged"
	StatusSkipped     ExportStatus = "skipped (different)"
	StatusOverwritten ExportStatus = "overwritten"
)

// ExportResult : un fichier embarqué et ce qu'on en a fait.
type ExportResult struct {
	Source string // chemin dans fsys
	Dest   string // chemin sur disque
	Status ExportStatus
	Backup string // renseigné si écrasé
}

// ExportDefaults copie récursivement tous les fichiers sous srcPrefix (dans fsys)
// vers destDir en préservant la hiérarchie relative.
// - force : si true, écrase les fichiers différents (avec backup)
//
// Les résultats sont dans l'ordre de parcours (lexical). En cas d'erreur, les
// résultats déjà obtenus sont retournés avec elle.
func ExportDefaults(fsys fs.FS, srcPrefix, destDir string, force bool) ([]ExportResult, error) {
	var results []ExportResult

	err := fs.WalkDir(fsys, srcPrefix, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// chemins embarqués : toujours des slashs
		rel := p
		if p != srcPrefix {
			rel = p[len(srcPrefix)+1:]
		} else {
			rel = path.Base(p)
		}
		destPath := filepath.Join(destDir, filepath.FromSlash(rel))

		if d.IsDir() {
			if p == srcPrefix {
				return os.MkdirAll(destDir, 0o755)
			}
			return os.MkdirAll(destPath, 0o755)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("lecture de la ressource embarquée %s : %w", p, err)
		}

		res := ExportResult{Source: p, Dest: destPath}

		// si le fichier existe déjà : comparer
		if existing, err := os.ReadFile(destPath); err == nil {
			switch {
			case bytes.Equal(existing, data):
				res.Status = StatusUnchanged
			case !force:
				res.Status = StatusSkipped
			default:
				backup := destPath + ".bak." + time.Now().Format("20060102T150405")
				if err := os.WriteFile(backup, existing, 0o644); err != nil {
					return fmt.Errorf("sauvegarde de %s impossible : %w", destPath, err)
				}
				if err := fsutil.WriteFileAtomic(destPath, data, 0o644); err != nil {
					return err
				}
				res.Status = StatusOverwritten
				res.Backup = backup
			}
			results = append(results, res)
			return nil
		}

		if err := fsutil.WriteFileAtomic(destPath, data, 0o644); err != nil {
			return err
		}
		res.Status = StatusWritten
		results = append(results, res)
		return nil
	})

	return results, err
}
