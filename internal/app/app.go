package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/patrickprogramme/captionsync/internal/clipboard"
	"github.com/patrickprogramme/captionsync/internal/config"
	"github.com/patrickprogramme/captionsync/internal/devtools"
	"github.com/patrickprogramme/captionsync/internal/fsutil"
	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/page"
	"github.com/patrickprogramme/captionsync/internal/session"
	"github.com/patrickprogramme/captionsync/internal/subtitles"
	"github.com/patrickprogramme/captionsync/internal/ui"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

const dirPerm = 0o755

// CLIFlags contient les informations venant des flags de l'app
type CLIFlags struct {
	ConfigPath string
	LogLevel   string
	URL        string
	Language   string // surcharge la langue des préférences (tracks, export)
	Format     string // format d'export, défaut: export.format
	OutDir     string // dossier d'export, défaut: export.output_dir
	Copy       bool   // export: transcript brut dans le presse-papier
	Overwrite  bool   // export: écrase le fichier existant
	SaveRaw    bool   // export: garde aussi la charge brute téléchargée
	Force      bool   // popup export: écrase les fichiers modifiés
}

// App orchestre les différentes dépendances (UI, store, hôte, session...)
type App struct {
	cfg    *config.Config
	ui     ui.Interface
	flags  *CLIFlags
	logger *slog.Logger
	out    io.Writer   // tableaux et listes (stdout)
	load   page.Loader // chargement des pages de lecture
}

// New construit l'application. Pour les tests, on injecte une fausse UI et
// on remplace out/load directement.
func New(cfg *config.Config, uiClient ui.Interface, flags *CLIFlags, logger *slog.Logger) *App {
	if flags == nil {
		flags = &CLIFlags{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &App{
		cfg:    cfg,
		ui:     uiClient,
		flags:  flags,
		logger: logger,
		out:    os.Stdout,
	}
	a.load = a.httpLoader()
	return a
}

// Attach pilote un onglet du navigateur via DevTools jusqu'à l'annulation
// de ctx ou la perte de la connexion.
func (a *App) Attach(ctx context.Context) error {
	lock, err := fsutil.AcquireLock(a.lockPath())
	if err != nil {
		if errors.Is(err, fsutil.ErrLocked) {
			return fmt.Errorf("une autre instance est déjà attachée (%s)", a.lockPath())
		}
		return fmt.Errorf("attach: %w", err)
	}
	defer func() { _ = lock.Release() }()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	targets, err := devtools.ListTargets(ctx, a.cfg.DevTools.Endpoint, a.fetchOptions())
	if err != nil {
		return fmt.Errorf("navigateur injoignable sur %s (lancé avec --remote-debugging-port ?): %w",
			a.cfg.DevTools.Endpoint, err)
	}
	target, ok := devtools.FindPage(targets, a.cfg.DevTools.TargetMatch)
	if !ok {
		return fmt.Errorf("aucun onglet ne correspond à %q", a.cfg.DevTools.TargetMatch)
	}
	a.logger.Info("devtools target selected",
		slog.String("target_id", target.ID),
		slog.String(logging.FieldURL, target.URL),
	)

	client, err := devtools.Dial(ctx, target.WebSocketDebuggerURL, a.logger)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer func() { _ = client.Close() }()

	host, err := page.NewBrowserHost(ctx, client, a.logger)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	ctrl := session.New(host, store, a.sessionOptions())
	defer func() { _ = ctrl.Close() }()
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.servePopup(runCtx, store)
	a.watchStore(runCtx, store)

	go func() {
		select {
		case <-client.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	a.ui.PrintInfo(ctx, fmt.Sprintf("Attaché à « %s ». Ctrl+C pour quitter.", target.Title))
	err = ctrl.Run(runCtx)
	if cerr := client.Err(); cerr != nil && ctx.Err() == nil {
		return fmt.Errorf("connexion devtools perdue: %w", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Play lit une vidéo "à blanc" dans le terminal : la page est chargée une
// fois, la lecture est simulée par une horloge et les captions s'affichent
// au fil de l'eau.
func (a *App) Play(ctx context.Context, arg string) error {
	url, err := a.resolveURL(ctx, arg)
	if err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	host, err := page.NewStaticHost(ctx, url, page.StaticOptions{
		Loader:  a.load,
		Display: a.ui,
	})
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}

	ctrl := session.New(host, store, a.sessionOptions())
	defer func() { _ = ctrl.Close() }()
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.servePopup(runCtx, store)
	a.watchStore(runCtx, store)
	go func() { _ = ctrl.Run(runCtx) }()

	a.ui.PrintInfo(ctx, fmt.Sprintf("Lecture de %s (Entrée: on/off, p: pause, +/-: %gs, q: quitter)", url, ui.SeekStep))
	return a.handleCommands(runCtx, host)
}

// handleCommands applique les commandes clavier à l'hôte statique.
// Retourne nil sur q, fin d'entrée ou annulation.
func (a *App) handleCommands(ctx context.Context, host *page.StaticHost) error {
	clock := host.Clock()
	cmds := a.ui.Commands(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			switch cmd {
			case ui.CmdToggle:
				if err := host.ClickToggle(ctx); err != nil {
					a.ui.PrintError(ctx, fmt.Sprintf("bouton: %v", err))
				}
			case ui.CmdPause:
				if clock.TogglePause() {
					a.ui.ShowStatus("pause à " + model.Seconds(clock.Position()).Timestamp())
				} else {
					a.ui.ShowStatus("lecture")
				}
			case ui.CmdForward:
				clock.Seek(clock.Position() + ui.SeekStep)
			case ui.CmdBack:
				clock.Seek(clock.Position() - ui.SeekStep)
			case ui.CmdQuit:
				return nil
			}
		}
	}
}

// Tracks affiche les pistes de sous-titres de la vidéo et celle qui serait
// retenue pour la langue préférée.
func (a *App) Tracks(ctx context.Context, arg string) error {
	url, err := a.resolveURL(ctx, arg)
	if err != nil {
		return err
	}
	meta, err := a.loadMeta(ctx, url)
	if err != nil {
		return err
	}
	lang := a.preferredLanguage(ctx)

	fmt.Fprint(a.out, meta.Pretty())
	if !meta.HasTracks() {
		a.ui.PrintInfo(ctx, "Aucune piste de sous-titres pour cette vidéo.")
		return nil
	}
	fmt.Fprintln(a.out, renderTracks(meta.Tracks, lang))
	return nil
}

// Export télécharge la piste préférée et l'écrit au format demandé.
func (a *App) Export(ctx context.Context, arg string) error {
	format, err := a.exportFormat()
	if err != nil {
		return err
	}
	url, err := a.resolveURL(ctx, arg)
	if err != nil {
		return err
	}
	meta, err := a.loadMeta(ctx, url)
	if err != nil {
		return err
	}

	lang := a.preferredLanguage(ctx)
	dl, err := subtitles.DownloadCaptions(ctx, meta, lang, a.fetchOptions())
	if err != nil {
		if errors.Is(err, subtitles.ErrNoTrack) {
			return fmt.Errorf("« %s »: %w", meta.Title, err)
		}
		return fmt.Errorf("export: %w", err)
	}
	a.logger.Debug("captions downloaded", slog.String("download", dl.String()))

	cues := dl.Cues()
	if len(cues) == 0 {
		return fmt.Errorf("export: aucun sous-titre lisible dans la piste %s (%s)", dl.Track.LanguageCode, dl.Format())
	}

	content, err := subtitles.ExportBytes(cues, format)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	outDir := a.exportDir()
	if err := os.MkdirAll(outDir, dirPerm); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}
	outPath, err := fsutil.SaveExportAtomic(outDir, dl.Filename(format), content, a.flags.Overwrite)
	if err != nil {
		return fmt.Errorf("cannot save file to disk: %w", err)
	}
	a.ui.PrintInfo(ctx, fmt.Sprintf("%d sous-titres écrits dans:\n%s", len(cues), outPath))

	if a.flags.SaveRaw {
		rawPath, err := saveRawDownload(dl, outDir, a.flags.Overwrite)
		if err != nil {
			return err
		}
		a.ui.PrintInfo(ctx, fmt.Sprintf("Piste brute écrite dans:\n%s", rawPath))
	}

	if a.flags.Copy {
		if err := clipboard.WriteAll(subtitles.PlainText(cues)); err != nil {
			a.ui.PrintError(ctx, fmt.Sprintf("warning: copie dans le presse-papier impossible: %v", err))
		} else {
			a.ui.PrintInfo(ctx, "Transcript copié dans le presse-papier.")
		}
	}
	return nil
}

// Decode lit un fichier de sous-titres local (xml, json3, srt, vtt) et
// affiche les cues décodés.
func (a *App) Decode(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	cues := subtitles.Decode(data)
	a.ui.PrintInfo(ctx, fmt.Sprintf("%s: format %s, %d sous-titres", path, subtitles.DetectFormat(data), len(cues)))
	if len(cues) == 0 {
		return nil
	}
	fmt.Fprintln(a.out, renderCues(cues))
	return nil
}
