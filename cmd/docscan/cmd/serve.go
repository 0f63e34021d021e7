package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/pipeline"
	"github.com/ironsheep/docscan/internal/server"
	"github.com/ironsheep/docscan/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run docscan as a Model Context Protocol server.

The server speaks JSON-RPC 2.0 over stdin and stdout, one message per line,
and exposes the scanning pipeline as tools. Logs go to stderr. Configure it
in your MCP client (e.g., Claude Desktop) with the command "docscan serve".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			p, err := pipeline.NewFromConfig(cfg, ocr.NewTesseract(cfg.OCR.TessdataPrefix), a.logger, nil)
			if err != nil {
				return err
			}
			var store *storage.Store
			if cfg.Storage.Save {
				store = storage.NewOS(cfg.Storage.BaseDir, a.logger)
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info().
				Str("version", a.build.Version).
				Str("build_time", a.build.BuildTime).
				Str("commit", a.build.GitCommit).
				Msg("MCP server starting")

			srv := server.New(server.Options{
				Pipeline:   p,
				Store:      store,
				Logger:     a.logger,
				MaxPreview: cfg.Output.MaxPreview,
				Version:    a.build.Version,
			})

			// Reading stdin blocks, so a signal ends the command without
			// waiting for the server loop.
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Run(ctx) }()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				a.logger.Info().Msg("MCP server stopping")
				return nil
			}
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
