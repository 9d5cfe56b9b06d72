package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automax/grievance-backend/pkg/utils"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWT.Secret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		token, err := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpireHour).GenerateToken(tokenSubject)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "grievance-cell", "subject claim of the issued token")
}
