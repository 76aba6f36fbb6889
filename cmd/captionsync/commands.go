package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patrickprogramme/captionsync/internal/app"
)

func newAttachCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attach",
		Short: "Se connecte à un onglet du navigateur (DevTools) et synchronise les sous-titres",
		Long: "Le navigateur doit être lancé avec --remote-debugging-port (voir devtools.endpoint).\n" +
			"Le premier onglet dont l'URL contient devtools.target_match est piloté jusqu'à Ctrl+C.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.Attach(cmd.Context())
			})
		},
	}
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [url]",
		Short: "Affiche les sous-titres d'une vidéo dans le terminal, au rythme de la lecture",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.Play(cmd.Context(), firstArg(args))
			})
		},
	}
	cmd.Flags().StringVar(&ctx.flags.URL, "url", "", "URL de la vidéo (sinon presse-papier, puis saisie)")
	return cmd
}

func newTracksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks [url]",
		Short: "Liste les pistes de sous-titres d'une vidéo",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.Tracks(cmd.Context(), firstArg(args))
			})
		},
	}
	cmd.Flags().StringVar(&ctx.flags.URL, "url", "", "URL de la vidéo")
	cmd.Flags().StringVar(&ctx.flags.Language, "lang", "", "langue préférée (défaut: préférence enregistrée)")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [url]",
		Short: "Télécharge les sous-titres et les écrit en srt, vtt ou txt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.Export(cmd.Context(), firstArg(args))
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&ctx.flags.URL, "url", "", "URL de la vidéo")
	flags.StringVar(&ctx.flags.Language, "lang", "", "langue préférée (défaut: préférence enregistrée)")
	flags.StringVarP(&ctx.flags.Format, "format", "f", "", "format de sortie srt|vtt|txt (défaut: export.format)")
	flags.StringVarP(&ctx.flags.OutDir, "out", "o", "", "dossier de sortie (défaut: export.output_dir)")
	flags.BoolVar(&ctx.flags.Copy, "copy", false, "copie aussi le transcript texte dans le presse-papier")
	flags.BoolVar(&ctx.flags.Overwrite, "overwrite", false, "écrase le fichier s'il existe déjà")
	flags.BoolVar(&ctx.flags.SaveRaw, "save-raw", false, "garde aussi la piste brute (json3 indenté)")
	return cmd
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Décode un fichier de sous-titres local (xml, json3, srt, vtt) et affiche les cues",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("indiquez le fichier à décoder. Exemple: captionsync decode captions.json")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.Decode(cmd.Context(), args[0])
			})
		},
	}
}

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Lit ou modifie les préférences (enabled, language, hideButton, forceRefresh)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	prefsCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Affiche les préférences en vigueur",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.PrefsGet(cmd.Context())
			})
		},
	})
	prefsCmd.AddCommand(&cobra.Command{
		Use:     "set key=value...",
		Short:   "Modifie une ou plusieurs préférences",
		Long: "Modifie une ou plusieurs préférences.\n" +
			"Une session attach/play en cours relit la base toutes les preferences.watch_interval.",
		Example: "  captionsync prefs set language=fr enabled=true",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.PrefsSet(cmd.Context(), args)
			})
		},
	})
	return prefsCmd
}

func newPopupCommand(ctx *commandContext) *cobra.Command {
	popupCmd := &cobra.Command{
		Use:   "popup",
		Short: "Page de préférences servie sur popup.listen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Copie la page de préférences embarquée pour la personnaliser (voir popup.dir)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return a.ExportPopup(cmd.Context(), firstArg(args))
			})
		},
	}
	exportCmd.Flags().BoolVar(&ctx.flags.Force, "force", false, "écrase les fichiers modifiés (une sauvegarde est conservée)")
	popupCmd.AddCommand(exportCmd)
	return popupCmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
