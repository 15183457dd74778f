package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/blueprint-paywall/internal/utils"
)

func newAdminCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Prepare admin API credentials",
	}

	var cost int
	hash := &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := utils.HashPassword(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	hash.Flags().IntVar(&cost, "cost", utils.DefaultBcryptCost, "bcrypt cost, same scale as BCRYPT_COST")

	var ttlMin int
	tok := &cobra.Command{
		Use:   "token",
		Short: "Print an admin bearer token without going through login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := v.GetString(keyJWTSecret)
			if secret == "" {
				return errors.New("jwt secret is not set (--jwt-secret or ADMIN_JWT_SECRET)")
			}
			at, err := utils.NewAccessToken(secret, v.GetString(keyAdminUser), utils.AdminRole, ttlMin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), at.Token)
			return nil
		},
	}
	tok.Flags().IntVar(&ttlMin, "ttl", 60, "lifetime in minutes")

	cmd.AddCommand(hash, tok)
	return cmd
}
