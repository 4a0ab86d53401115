package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/county"
)

var featuresOutput string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Write joined county features as GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("features"); err != nil {
			return err
		}

		features, err := county.LoadFeatures(ctx, newFetcher(cfg), countySources(cfg))
		if err != nil {
			return err
		}
		data, err := county.FeatureCollection(features, nil)
		if err != nil {
			return err
		}

		if err := writeOutput(cmd.OutOrStdout(), featuresOutput, func(w io.Writer) error {
			_, err := w.Write(data)
			return eris.Wrap(err, "write features")
		}); err != nil {
			return err
		}

		zap.L().Info("features written", zap.String("output", featuresOutput), zap.Int("features", len(features)))
		return nil
	},
}

func init() {
	featuresCmd.Flags().StringVarP(&featuresOutput, "output", "o", "counties.geojson", "output GeoJSON file (- for stdout)")
	rootCmd.AddCommand(featuresCmd)
}
