package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/leafmap"
	"github.com/sells-group/mapbook/internal/notebook"
)

var (
	renderOutput     string
	renderDumpConfig bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the track and county maps into one document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyChoroplethFlags(cmd)
		if err := cfg.Validate("render"); err != nil {
			return err
		}

		f := newFetcher(cfg)
		doc, err := notebook.Run(ctx, cfg.Map.Title,
			notebook.Step{
				Name:    "track",
				Heading: "GPS track",
				Text:    "Each point of the ride, coloured by elevation.",
				Build: func(ctx context.Context) (*leafmap.Map, error) {
					return buildTrackMap(ctx, cfg, f)
				},
			},
			notebook.Step{
				Name:    "counties",
				Heading: "Cases by county",
				Text:    "Most recent cumulative cases per 10,000 residents. Grey counties have no case or population data.",
				Build: func(ctx context.Context) (*leafmap.Map, error) {
					return buildChoropleth(ctx, cfg, f)
				},
			},
		)
		if err != nil {
			return err
		}

		if renderDumpConfig {
			return leafmap.DumpConfig(cmd.OutOrStdout(), notebook.Maps(doc)...)
		}

		if err := writeOutput(cmd.OutOrStdout(), renderOutput, func(w io.Writer) error {
			return leafmap.Render(w, *doc)
		}); err != nil {
			return err
		}

		zap.L().Info("document written", zap.String("output", renderOutput), zap.Int("sections", len(doc.Sections)))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "mapbook.html", "output HTML file (- for stdout)")
	renderCmd.Flags().BoolVar(&renderDumpConfig, "dump-config", false, "print the map configuration as YAML instead of rendering")
	addChoroplethFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}
