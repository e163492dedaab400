package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/harmonize/internal/shapeio"
)

var exportCmd = &cobra.Command{
	Use:   "export RUN_ID",
	Short: "Export a persisted run's harmonized table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")
		if out == "" {
			return eris.New("--out is required")
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		result, err := s.LoadResult(ctx, args[0])
		if err != nil {
			return err
		}

		wopts := shapeio.WriteOptions{
			IDColumn:     cfg.Harmonize.IndexCol,
			PeriodColumn: cfg.Harmonize.TimeCol,
		}
		switch format {
		case "geojson":
			err = shapeio.WriteGeoJSON(result, out, wopts)
		case "csv":
			err = shapeio.WriteCSV(result, out, wopts)
		case "xlsx":
			err = shapeio.WriteXLSX(result, out, "", wopts)
		default:
			return eris.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return err
		}

		fmt.Printf("wrote %d rows to %s\n", result.Len(), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file path")
	exportCmd.Flags().String("format", "geojson", "output format: geojson, csv, or xlsx")
	rootCmd.AddCommand(exportCmd)
}
