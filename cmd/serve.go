package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hussaintmg/Population-Weather-App/internal/dashboard"
	"github.com/hussaintmg/Population-Weather-App/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboards over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		var boards []*dashboard.Board
		for _, k := range dashboard.Kinds() {
			b, err := openBoard(string(k))
			if err != nil {
				return err
			}
			// Warm the cache so a bad source shows up at startup.
			if _, err := b.Dataset(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %s board: %v\n", k, err)
			}
			boards = append(boards, b)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		srv := server.New(boards, server.WithLogger(logger), server.WithTopN(cfg.TopN))
		logger.Info("dashboard server starting", slog.String("addr", addr))
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
