package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"mediadl/internal/consts"
	"mediadl/internal/entity"
	"mediadl/internal/errs"
	"mediadl/internal/quality"
	"mediadl/pkg/urls"

	"github.com/spf13/cobra"
)

func (a *App) downloadCmd() *cobra.Command {
	var req entity.DownloadRequest

	var mediaType, qualityToken string

	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download a single URL without prompting.",
		Example: "  mediadl download https://www.youtube.com/watch?v=dQw4w9WgXcQ --quality 720\n" +
			"  mediadl download https://soundcloud.com/artist/track --type audio --name \"My Track\"",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req.URL = urls.Normalize(args[0])
			if req.URL == "" {
				a.log.ErrorContext(ctx, consts.LogInputError, slog.Any("error", errs.ErrEmptyURL))

				return nil
			}

			req.MediaType = entity.ParseMediaType(mediaType, "")

			if token := strings.TrimSpace(qualityToken); token != "" {
				req.Quality = quality.Translate(token)
			}

			lib, err := a.library(ctx)
			if err != nil {
				return err
			}

			a.download(ctx, lib, req)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&mediaType, "type", "t", "", "media type: video or audio (default from MEDIADL_DOWNLOAD_MEDIA_TYPE)")
	flags.StringVarP(&qualityToken, "quality", "q", "", "best, worst, a max height like 720, or a yt-dlp format selector")
	flags.StringVarP(&req.Dir, "dir", "d", "", "destination directory (default from MEDIADL_DOWNLOAD_DIR)")
	flags.StringVarP(&req.Name, "name", "n", "", "file name to use instead of the media title")

	return cmd
}

func (a *App) depsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Manage yt-dlp, ffmpeg and deno binaries.",
		Long: "Manage the binaries kept in MEDIADL_DEPMANAGER_BINS_DIR.\n" +
			"They are used when MEDIADL_DEPMANAGER_USE_SYSTEM_BINARIES is false.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	install := &cobra.Command{
		Use:   "install",
		Short: "Download the binaries that are missing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.deps.InstallAll(cmd.Context()); err != nil {
				return fmt.Errorf("install binaries: %w", err)
			}

			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update",
		Short: "Redownload the binaries with a newer release.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			updated, err := a.deps.Update(cmd.Context())
			if err != nil {
				return fmt.Errorf("update binaries: %w", err)
			}

			for _, name := range updated {
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", name)
			}

			return nil
		},
	}

	cmd.AddCommand(install, update)

	return cmd
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", consts.AppName, Version)
		},
	}
}
