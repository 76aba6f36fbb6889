package ui

import (
	"context"

	"github.com/patrickprogramme/captionsync/internal/page"
)

type Interface interface {
	// GetYtURL doit renvoyer une URL valide.
	// Implémentation terminale : priorité clipboard -> prompt
	GetYtURL(ctx context.Context) (string, error)

	// WaitForExit bloque jusqu'à ce qu'un signal d'annulation soit reçu via ctx (Ctrl+C).
	WaitForExit(ctx context.Context) error

	PrintInfo(ctx context.Context, s string)
	PrintError(ctx context.Context, s string)

	// Display : sortie des captions de `play`.
	page.Display

	// Commands lit les commandes clavier de `play` jusqu'à ctx.Done ou EOF.
	Commands(ctx context.Context) <-chan Command
}

// Command : action clavier pendant `play`.
type Command int

const (
	CmdToggle  Command = iota + 1 // Entrée : bouton Captions ON/OFF
	CmdPause                      // p
	CmdForward                    // + : avance de SeekStep
	CmdBack                       // - : recule de SeekStep
	CmdQuit                       // q
)

// SeekStep : pas des commandes + et -, en secondes.
const SeekStep = 5.0

// ParseCommand traduit une ligne saisie. Ligne inconnue -> false.
func ParseCommand(line string) (Command, bool) {
	switch line {
	case "":
		return CmdToggle, true
	case "p", "pause":
		return CmdPause, true
	case "+", "f":
		return CmdForward, true
	case "-", "b":
		return CmdBack, true
	case "q", "quit":
		return CmdQuit, true
	default:
		return 0, false
	}
}
