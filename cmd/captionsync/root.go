package main

import (
	"github.com/spf13/cobra"

	"github.com/patrickprogramme/captionsync/internal/app"
)

func newRootCommand() *cobra.Command {
	flags := &app.CLIFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "captionsync",
		Short:         "Sous-titres synchronisés pour les vidéos YouTube",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "chemin du fichier de configuration (défaut: captionsync.yaml à côté de l'exécutable)")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "niveau de log (debug|info|warn|error), surcharge logging.level")

	rootCmd.AddCommand(newAttachCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newTracksCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newDecodeCommand(ctx))
	rootCmd.AddCommand(newPrefsCommand(ctx))
	rootCmd.AddCommand(newPopupCommand(ctx))

	return rootCmd
}
