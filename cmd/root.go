package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/harmonize/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "harmonize",
	Short: "Harmonize polygon time series onto a common boundary set",
	Long: `Reallocates attribute values recorded on changing polygon boundaries
(e.g. census tracts redrawn across decades) onto one target period's
geometry, producing a single table comparable across time.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
