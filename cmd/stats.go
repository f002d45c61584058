package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print submission counts by status",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		e := newEnv()

		st, err := e.openStore(ctx)
		if err != nil {
			e.logger.Fatal("opening the store", zap.Error(err))
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			e.logger.Fatal("getting stats", zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			e.logger.Fatal("printing stats", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
