package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"steprecorder/internal/config"
	"steprecorder/pkg/auth"
)

func newTokenCmd() *cobra.Command {
	var subject string
	var expire int

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if expire <= 0 {
				expire = cfg.JWT.ExpireTime
			}
			token, err := auth.GenerateToken(cfg.JWT.Secret, subject, expire)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "who the token is issued to")
	cmd.Flags().IntVar(&expire, "expire", 0, "lifetime in seconds (default JWT_EXPIRE_TIME)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
