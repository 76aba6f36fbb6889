package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/patrickprogramme/captionsync/internal/clipboard"
	"github.com/patrickprogramme/captionsync/internal/yt"
)

type terminalUI struct {
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
	// réécriture de la ligne de caption en place (terminal interactif)
	inPlace bool
	// source de l'URL avant le prompt (presse-papier en prod)
	clip func() (string, bool)

	mu       sync.Mutex
	lastLine bool // une caption occupe la ligne courante
}

func NewTerminal() Interface {
	return newTerminal(os.Stdin, os.Stdout, os.Stderr,
		isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		func() (string, bool) { return clipboard.ReadMatching(yt.IsYouTubeURL) },
	)
}

func newTerminal(in io.Reader, out, errOut io.Writer, inPlace bool, clip func() (string, bool)) *terminalUI {
	return &terminalUI{
		reader:  bufio.NewReader(in),
		out:     out,
		errOut:  errOut,
		inPlace: inPlace,
		clip:    clip,
	}
}

func (t *terminalUI) GetYtURL(ctx context.Context) (string, error) {
	// 1) clipboard
	if clip, ok := t.clip(); ok {
		t.PrintInfo(ctx, fmt.Sprintf("Utilisation de l'URL depuis le presse-papier: %s", clip))
		return clip, nil
	}
	// 2) prompt
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(t.out, "Entrez l'URL d'une vidéo Youtube: ")
		input, err := t.reader.ReadString('\n')
		url := strings.TrimSpace(input)
		if yt.IsYouTubeURL(url) {
			return url, nil
		}
		if err != nil {
			return "", fmt.Errorf("lecture stdin: %w", err)
		}
		fmt.Fprintln(t.out, "❌ URL invalide. Essayez à nouveau.")
	}
}

func (t *terminalUI) WaitForExit(ctx context.Context) error {
	fmt.Fprintln(t.out, "\nAppuyez sur Ctrl+C pour quitter.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sigCh:
		return nil
	}
}

func (t *terminalUI) PrintInfo(ctx context.Context, s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakLineLocked()
	fmt.Fprintln(t.out, s)
}

func (t *terminalUI) PrintError(ctx context.Context, s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakLineLocked()
	fmt.Fprintln(t.errOut, s)
}

// ShowCaption affiche le texte courant. En terminal interactif la ligne est
// réécrite en place ; sinon une ligne par changement (texte vide ignoré).
func (t *terminalUI) ShowCaption(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// les captions multi-lignes tiennent sur une ligne de terminal
	text = strings.Join(strings.Fields(text), " ")
	if t.inPlace {
		fmt.Fprintf(t.out, "\r\033[K%s", text)
		t.lastLine = text != ""
		return
	}
	if text != "" {
		fmt.Fprintln(t.out, text)
	}
}

func (t *terminalUI) ShowStatus(text string) {
	if text == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakLineLocked()
	fmt.Fprintf(t.out, "[%s]  (Entrée: on/off, p: pause, +/-: %gs, q: quitter)\n", text, SeekStep)
}

func (t *terminalUI) breakLineLocked() {
	if t.inPlace && t.lastLine {
		fmt.Fprintln(t.out)
		t.lastLine = false
	}
}

// Commands : la lecture de stdin ne peut pas être interrompue ; la goroutine
// se termine à EOF, le canal est fermé dès ctx.Done.
func (t *terminalUI) Commands(ctx context.Context) <-chan Command {
	out := make(chan Command)
	lines := make(chan string)
	stop := make(chan struct{})

	go func() {
		defer close(lines)
		for {
			line, err := t.reader.ReadString('\n')
			if line != "" || err == nil {
				select {
				case lines <- strings.TrimSpace(strings.ToLower(line)):
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					t.PrintError(ctx, fmt.Sprintf("lecture stdin: %v", err))
				}
				return
			}
		}
	}()

	go func() {
		defer close(out)
		defer close(stop)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				cmd, ok := ParseCommand(line)
				if !ok {
					t.PrintError(ctx, fmt.Sprintf("commande inconnue : %q", line))
					continue
				}
				select {
				case out <- cmd:
				case <-ctx.Done():
					return
				}
				if cmd == CmdQuit {
					return
				}
			}
		}
	}()
	return out
}
