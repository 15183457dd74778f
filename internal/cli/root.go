// Package cli implements grqctl, the operator command line for the paywall.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/blueprint-paywall/internal/config"
)

// Settings keys.  Each can be given as a flag or through the listed
// environment variables.
const (
	keyCookieSecret = "cookie_secret"
	keyKVURL        = "kv_url"
	keyKVToken      = "kv_token"
	keyNamespace    = "namespace"
	keyJWTSecret    = "jwt_secret"
	keyAdminUser    = "admin_user"
)

// NewRootCmd builds the grqctl command tree.  Output goes to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "grqctl",
		Short:         "Operator tooling for the blueprint paywall",
		Long:          "grqctl issues and inspects access tokens, reads the fulfillment ledger and prepares admin credentials.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.String("cookie-secret", "", "HMAC secret for access tokens (env GRQ_COOKIE_SECRET)")
	pf.String("kv-url", "", "ledger endpoint (env KV_URL, KV_REST_API_URL, REDIS_URL)")
	pf.String("kv-token", "", "ledger password or REST token (env KV_TOKEN, KV_REST_API_TOKEN)")
	pf.String("namespace", "", "ledger key namespace (env LEDGER_NAMESPACE)")
	pf.String("jwt-secret", "", "admin API signing secret (env ADMIN_JWT_SECRET)")
	pf.String("admin-user", "", "admin subject (env ADMIN_USER, default admin)")

	bind := func(key, flag string, envs ...string) {
		_ = v.BindPFlag(key, pf.Lookup(flag))
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	bind(keyCookieSecret, "cookie-secret", "GRQ_COOKIE_SECRET")
	bind(keyKVURL, "kv-url", "KV_URL", "KV_REST_API_URL", "REDIS_URL")
	bind(keyKVToken, "kv-token", "KV_TOKEN", "KV_REST_API_TOKEN", "REDIS_PASSWORD")
	bind(keyNamespace, "namespace", "LEDGER_NAMESPACE")
	bind(keyJWTSecret, "jwt-secret", "ADMIN_JWT_SECRET")
	bind(keyAdminUser, "admin-user", "ADMIN_USER")
	v.SetDefault(keyAdminUser, "admin")

	root.AddCommand(newTokenCmd(v), newLedgerCmd(v), newAdminCmd(v))
	return root
}
