package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/leafmap"
)

var trackOutput string

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Render the GPS track as elevation-coloured markers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("track"); err != nil {
			return err
		}

		m, err := buildTrackMap(ctx, cfg, newFetcher(cfg))
		if err != nil {
			return err
		}

		doc := leafmap.Document{Title: cfg.Map.Title, Sections: []leafmap.Section{{Map: m}}}
		if err := writeOutput(cmd.OutOrStdout(), trackOutput, func(w io.Writer) error {
			return leafmap.Render(w, doc)
		}); err != nil {
			return err
		}

		zap.L().Info("track map written", zap.String("output", trackOutput), zap.Int("markers", len(m.Circles[0].Markers)))
		return nil
	},
}

func init() {
	trackCmd.Flags().StringVarP(&trackOutput, "output", "o", "track.html", "output HTML file (- for stdout)")
	rootCmd.AddCommand(trackCmd)
}
