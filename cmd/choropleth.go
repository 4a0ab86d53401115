package main

import (
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/leafmap"
	"github.com/sells-group/mapbook/internal/palette"
)

var (
	choroplethOutput    string
	choroplethPalette   string
	choroplethHighlight string
	choroplethLegend    string
	choroplethBreaks    []float64
)

var choroplethCmd = &cobra.Command{
	Use:   "choropleth",
	Short: "Render county case rates as a choropleth map",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyChoroplethFlags(cmd)
		if err := cfg.Validate("choropleth"); err != nil {
			return err
		}

		m, err := buildChoropleth(ctx, cfg, newFetcher(cfg))
		if err != nil {
			return err
		}

		doc := leafmap.Document{Title: cfg.Map.Title, Sections: []leafmap.Section{{Map: m}}}
		if err := writeOutput(cmd.OutOrStdout(), choroplethOutput, func(w io.Writer) error {
			return leafmap.Render(w, doc)
		}); err != nil {
			return err
		}

		zap.L().Info("choropleth map written", zap.String("output", choroplethOutput))
		return nil
	},
}

// applyChoroplethFlags overrides configured styling with any flags the user set.
func applyChoroplethFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("palette") {
		cfg.Choropleth.Palette = choroplethPalette
	}
	if cmd.Flags().Changed("highlight-color") {
		cfg.Choropleth.HighlightColor = choroplethHighlight
	}
	if cmd.Flags().Changed("legend-title") {
		cfg.Choropleth.LegendTitle = choroplethLegend
	}
	if cmd.Flags().Changed("breaks") {
		cfg.Choropleth.Breaks = choroplethBreaks
	}
}

func addChoroplethFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&choroplethPalette, "palette", "",
		"fill palette: comma-separated hex colours or one of "+strings.Join(palette.Names(), ", ")+" (suffix _r reverses)")
	cmd.Flags().StringVar(&choroplethHighlight, "highlight-color", "", "outline colour of the hovered county")
	cmd.Flags().StringVar(&choroplethLegend, "legend-title", "", "choropleth legend title")
	cmd.Flags().Float64SliceVar(&choroplethBreaks, "breaks", nil, "explicit class breaks for the fill, e.g. 0,5,10,50")
}

func init() {
	choroplethCmd.Flags().StringVarP(&choroplethOutput, "output", "o", "choropleth.html", "output HTML file (- for stdout)")
	addChoroplethFlags(choroplethCmd)
	rootCmd.AddCommand(choroplethCmd)
}
