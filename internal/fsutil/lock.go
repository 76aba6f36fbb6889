package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked : une autre instance tient déjà le verrou.
var ErrLocked = errors.New("another instance is already running")

// Lock est un verrou exclusif sur fichier (une seule instance par base de
// préférences).
type Lock struct {
	fl *flock.Flock
}

// AcquireLock prend le verrou path sans attendre. ErrLocked s'il est tenu.
func AcquireLock(path string) (*Lock, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure lock directory: %w", err)
		}
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock: %s)", ErrLocked, path)
	}
	return &Lock{fl: fl}, nil
}

// Path retourne le chemin du fichier verrou.
func (l *Lock) Path() string { return l.fl.Path() }

// Release libère le verrou ; idempotent.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
