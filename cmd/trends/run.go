package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/williampepple1/proxy-trends/internal/io"
)

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scrape and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		outcome := env.Orchestrator.Trigger(ctx)

		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if runOutput != "" {
			cfg.IO.OutputFile = runOutput
		}
		writer := io.NewResultWriter(&cfg.IO)
		if writer.Enabled() {
			if err := writer.SaveToFile(outcome); err != nil {
				return err
			}
			zap.L().Info("result saved", zap.String("file", cfg.IO.OutputFile))
		}

		return outcome.Err
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "also save the result to this file (default from config)")
	rootCmd.AddCommand(runCmd)
}
