package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automax/grievance-backend/internal/classifier"
)

var probeModels []string

var probeModelsCmd = &cobra.Command{
	Use:   "probe-models",
	Short: "Find a model name the configured credentials can reach",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := newGenerator(cmd.Context(), &cfg.AI)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		working, results := classifier.ProbeModels(cmd.Context(),
			func(model string) classifier.TextGenerator { return base.WithModel(model) },
			probeModels, cfg.AI.Timeout)

		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "FAIL %s: %v\n", r.Model, r.Err)
				continue
			}
			fmt.Fprintf(out, "OK   %s: %s\n", r.Model, r.Reply)
		}

		if working == "" {
			return errors.New("no model answered; check credentials and enabled APIs")
		}
		fmt.Fprintf(out, "Set AI_MODEL=%s\n", working)
		return nil
	},
}

func init() {
	probeModelsCmd.Flags().StringSliceVar(&probeModels, "models", classifier.DefaultProbeModels, "model names to try in order")
}
