package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/patrickprogramme/captionsync/internal/api"
	"github.com/patrickprogramme/captionsync/internal/assets"
	"github.com/patrickprogramme/captionsync/internal/bootstrap"
	"github.com/patrickprogramme/captionsync/internal/config"
	"github.com/patrickprogramme/captionsync/internal/fetch"
	"github.com/patrickprogramme/captionsync/internal/fsutil"
	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/page"
	"github.com/patrickprogramme/captionsync/internal/player"
	"github.com/patrickprogramme/captionsync/internal/prefs"
	"github.com/patrickprogramme/captionsync/internal/session"
	"github.com/patrickprogramme/captionsync/internal/subtitles"
	"github.com/patrickprogramme/captionsync/internal/yt"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

const lockName = "captionsync.lock"

// PrefsGet affiche les préférences en vigueur.
func (a *App) PrefsGet(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("lecture des préférences: %w", err)
	}
	fmt.Fprintln(a.out, renderPreferences(p))
	return nil
}

// PrefsSet applique des affectations "clé=valeur" en une seule mise à jour.
func (a *App) PrefsSet(ctx context.Context, assignments []string) error {
	if len(assignments) == 0 {
		return fmt.Errorf("aucune affectation (attendu clé=valeur)")
	}
	var u prefs.Update
	for _, kv := range assignments {
		one, err := prefs.ParseUpdate(kv)
		if err != nil {
			return err
		}
		u = mergeUpdate(u, one)
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Set(ctx, u); err != nil {
		return fmt.Errorf("écriture des préférences: %w", err)
	}
	p, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("lecture des préférences: %w", err)
	}
	fmt.Fprintln(a.out, renderPreferences(p))
	return nil
}

// saveRawDownload sauvegarde la piste telle que téléchargée, en JSON indenté
// quand c'est du json3. Suffixe ".raw" pour ne jamais toucher l'export.
func saveRawDownload(dl subtitles.CaptionDownload, outDir string, overwrite bool) (string, error) {
	if len(dl.Data) == 0 {
		return "", fmt.Errorf("saveRawDownload: pas de données dans %s", dl)
	}
	data := dl.Data
	if pretty, err := dl.PrettyJSON(); err == nil && pretty != "" {
		data = []byte(pretty)
	}
	f := dl.Format()
	name := strings.TrimSuffix(dl.Filename(f), f.Extension()) + ".raw" + f.Extension()
	path, err := fsutil.SaveExportAtomic(outDir, name, data, overwrite)
	if err != nil {
		return "", fmt.Errorf("write raw captions: %w", err)
	}
	return path, nil
}

// mergeUpdate : les champs renseignés de next l'emportent.
func mergeUpdate(u, next prefs.Update) prefs.Update {
	if next.Enabled != nil {
		u.Enabled = next.Enabled
	}
	if next.Language != nil {
		u.Language = next.Language
	}
	if next.HideButton != nil {
		u.HideButton = next.HideButton
	}
	if next.ForceRefresh != nil {
		u.ForceRefresh = next.ForceRefresh
	}
	return u
}

// ExportPopup copie la page de préférences embarquée dans dir, pour la
// personnaliser puis la servir via popup.dir.
func (a *App) ExportPopup(ctx context.Context, dir string) error {
	if dir == "" {
		dir = a.cfg.Popup.Dir
	}
	if dir == "" {
		dir = a.resolvePath(assets.PopupDir)
	}
	results, err := bootstrap.ExportDefaults(assets.Embedded, assets.PopupDir, dir, a.flags.Force)
	for _, r := range results {
		line := fmt.Sprintf("%-20s %s", r.Status, r.Dest)
		if r.Backup != "" {
			line += " (backup: " + r.Backup + ")"
		}
		a.ui.PrintInfo(ctx, line)
	}
	if err != nil {
		return fmt.Errorf("export popup: %w", err)
	}
	return nil
}

func (a *App) fetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:   a.cfg.Fetch.Timeout,
		MaxBytes:  a.cfg.Fetch.MaxBytes,
		UserAgent: a.cfg.Fetch.UserAgent,
	}
}

func (a *App) sessionOptions() session.Options {
	t := a.cfg.Timing
	return session.Options{
		StartupDelay: t.StartupDelay,
		SettleDelay:  t.SettleDelay,
		SyncInterval: t.SyncInterval,
		Locate: player.Options{
			Interval:    t.LocateInterval,
			MaxAttempts: t.LocateMaxAttempts,
			Logger:      a.logger,
		},
		Fetch:  a.fetchOptions(),
		Logger: a.logger,
	}
}

// httpLoader charge les pages de lecture avec les réglages fetch.
func (a *App) httpLoader() page.Loader {
	return func(ctx context.Context, url string) ([]byte, error) {
		return fetch.FetchBytes(ctx, url, a.fetchOptions())
	}
}

// resolvePath rend p relatif au dossier du fichier de config.
func (a *App) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || a.cfg.Path() == "" {
		return p
	}
	return filepath.Join(filepath.Dir(a.cfg.Path()), p)
}

// openStore ouvre le store de préférences choisi par la config.
func (a *App) openStore() (prefs.Store, error) {
	defaults := a.cfg.Preferences.Defaults
	switch a.cfg.Preferences.Backend {
	case config.BackendMemory:
		return prefs.NewMemory(defaults), nil
	case config.BackendSQLite, "":
		path := a.resolvePath(a.cfg.Preferences.Path)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, dirPerm); err != nil {
				return nil, fmt.Errorf("create preferences dir: %w", err)
			}
		}
		store, err := prefs.OpenSQLite(path, defaults)
		if err != nil {
			return nil, fmt.Errorf("ouverture des préférences %s: %w", path, err)
		}
		a.logger.Debug("preferences store opened", slog.String("path", store.Path()))
		return store, nil
	default:
		return nil, fmt.Errorf("preferences.backend inconnu: %q", a.cfg.Preferences.Backend)
	}
}

// lockPath : à côté de la base de préférences, sinon à côté de la config.
func (a *App) lockPath() string {
	if a.cfg.Preferences.Backend != config.BackendMemory && a.cfg.Preferences.Path != "" {
		return a.resolvePath(a.cfg.Preferences.Path) + ".lock"
	}
	return a.resolvePath(lockName)
}

// popupFS : popup.dir s'il existe, sinon la page embarquée.
func (a *App) popupFS() (fs.FS, error) {
	if dir := a.cfg.Popup.Dir; dir != "" {
		dir = a.resolvePath(dir)
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return os.DirFS(dir), nil
		}
		a.logger.Warn("popup dir not found, using embedded page", slog.String("dir", dir))
	}
	return fs.Sub(assets.Embedded, assets.PopupDir)
}

// servePopup démarre l'API de préférences si popup.listen est renseigné.
// Le serveur s'arrête avec ctx.
func (a *App) servePopup(ctx context.Context, store prefs.Store) {
	addr := a.cfg.Popup.Listen
	if addr == "" {
		return
	}
	static, err := a.popupFS()
	if err != nil {
		a.logger.Warn("popup assets unavailable", slog.Any("error", err))
		static = nil
	}
	srv := api.New(store, static, a.logger)
	go func() {
		if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("preferences server stopped", slog.String("listen", addr), slog.Any("error", err))
		}
	}()
}

// watchStore relit la base SQLite pendant la session : un "prefs set" lancé
// dans un autre terminal atteint ainsi le contrôleur.
func (a *App) watchStore(ctx context.Context, store prefs.Store) {
	db, ok := store.(*prefs.SQLite)
	if !ok {
		return
	}
	go func() {
		if err := db.Watch(ctx, a.cfg.Preferences.WatchInterval); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("preferences watch stopped", slog.Any("error", err))
		}
	}()
}

// resolveURL : priorité argument > flag > clipboard/prompt.
func (a *App) resolveURL(ctx context.Context, arg string) (string, error) {
	for _, candidate := range []string{arg, a.flags.URL} {
		if u := strings.TrimSpace(candidate); u != "" {
			if !yt.IsYouTubeURL(u) {
				a.logger.Warn("url does not look like a video page", slog.String(logging.FieldURL, u))
			}
			return u, nil
		}
	}
	u, err := a.ui.GetYtURL(ctx)
	if err != nil {
		return "", fmt.Errorf("get url: %w", err)
	}
	return u, nil
}

// loadMeta charge la page une fois et lit les métadonnées du lecteur
// embarquées dans le HTML.
func (a *App) loadMeta(ctx context.Context, url string) (*model.VideoMeta, error) {
	doc, err := a.load(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chargement de %s: %w", url, err)
	}
	snap, err := page.SnapshotFromHTML(url, doc)
	if err != nil {
		return nil, fmt.Errorf("analyse de %s: %w", url, err)
	}
	raw, ok := player.Extract(snap)
	if !ok {
		return nil, fmt.Errorf("métadonnées du lecteur introuvables dans %s", url)
	}
	meta, err := yt.ParsePlayerResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse player response: %w", err)
	}
	a.logger.Info("video metadata loaded",
		slog.String(logging.FieldVideoID, meta.VideoID),
		slog.Int("tracks", len(meta.Tracks)),
	)
	return meta, nil
}

// preferredLanguage : flag --lang, sinon la langue du store.
func (a *App) preferredLanguage(ctx context.Context) string {
	if l := strings.TrimSpace(a.flags.Language); l != "" {
		return l
	}
	store, err := a.openStore()
	if err != nil {
		a.logger.Warn("preferences unavailable, using config defaults", slog.Any("error", err))
		return a.cfg.Preferences.Defaults.Language
	}
	defer func() { _ = store.Close() }()
	p, err := store.Get(ctx)
	if err != nil {
		return a.cfg.Preferences.Defaults.Language
	}
	return p.Language
}

func (a *App) exportFormat() (model.Format, error) {
	name := a.flags.Format
	if name == "" {
		name = a.cfg.Export.Format
	}
	f, err := model.ParseFormat(name)
	if err != nil {
		return model.FormatUnknown, err
	}
	if !f.IsExportable() {
		return model.FormatUnknown, fmt.Errorf("format d'export non supporté: %s (srt|vtt|txt)", f)
	}
	return f, nil
}

func (a *App) exportDir() string {
	if a.flags.OutDir != "" {
		return a.flags.OutDir
	}
	return a.resolvePath(a.cfg.Export.OutputDir)
}
