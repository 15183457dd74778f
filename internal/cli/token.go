package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/blueprint-paywall/internal/token"
)

func codecFrom(v *viper.Viper) (*token.Codec, error) {
	secret := v.GetString(keyCookieSecret)
	if secret == "" {
		return nil, errors.New("cookie secret is not set (--cookie-secret or GRQ_COOKIE_SECRET)")
	}
	return token.New(secret), nil
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify access tokens",
	}

	var (
		role, session string
		legacy        bool
		ttl           time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Print an access token for a role and checkout session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codecFrom(v)
			if err != nil {
				return err
			}
			var raw string
			if legacy {
				raw, err = c.IssueLegacy(role, session, time.Now().Add(ttl))
			} else {
				raw, err = c.Issue(role, session)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	issue.Flags().StringVar(&role, "role", "", "role slug")
	issue.Flags().StringVar(&session, "session", "", "checkout session id")
	issue.Flags().BoolVar(&legacy, "legacy", false, "emit the legacy base64json.signature format")
	issue.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "expiry for legacy tokens")
	_ = issue.MarkFlagRequired("role")
	_ = issue.MarkFlagRequired("session")

	verify := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Check a token's signature and print its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codecFrom(v)
			if err != nil {
				return err
			}
			acc, err := c.Verify(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid role=%s session_id=%s\n", acc.Role, acc.SessionID)
			return nil
		},
	}

	cmd.AddCommand(issue, verify)
	return cmd
}
