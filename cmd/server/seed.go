package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/automax/grievance-backend/internal/database"
)

var (
	seedCount int
	seedValue uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert mock grievances for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedCount <= 0 {
			return errors.New("--count must be positive")
		}

		db := openDatabase(cfg, logger)
		if db == nil {
			return errors.New("database unavailable")
		}
		defer database.Close(db)

		s := seedValue
		if s == 0 {
			s = uint64(time.Now().UnixNano())
		}
		r := rand.New(rand.NewPCG(s, s>>1))

		if err := database.SeedMockGrievances(db, seedCount, r, logger); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d mock grievances\n", seedCount)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 50, "number of grievances to insert")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 0, "random seed (0 picks one from the clock)")
}
