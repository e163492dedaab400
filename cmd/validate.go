package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/harmonize/internal/harmonize"
	"github.com/sells-group/harmonize/internal/interp"
	"github.com/sells-group/harmonize/internal/job"
)

var validateCmd = &cobra.Command{
	Use:   "validate JOB_FILE",
	Short: "Check a job and its inputs without interpolating",
	Long: `Loads the job file and every input layer, then applies the same
validation the run command would: variables requested, every layer
carries a CRS, all layers agree on it, and the weighting method is
supported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		spec, err := job.Load(args[0], jobDefaults())
		if err != nil {
			return err
		}

		layers, err := job.LoadLayers(ctx, spec)
		if err != nil {
			return err
		}

		opts, err := spec.Options()
		if err != nil {
			return err
		}

		h := harmonize.New(interp.FromTables(nil), nil, interp.Applier{})
		if err := h.ValidateInputs(layers, opts); err != nil {
			return err
		}

		var rows int
		for _, l := range layers {
			rows += l.Len()
		}
		fmt.Printf("ok: %d layers, %d records, target year %s, method %s\n",
			len(layers), rows, spec.TargetYear, spec.Method)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
