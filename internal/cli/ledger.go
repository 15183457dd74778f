package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/blueprint-paywall/internal/config"
	"github.com/iliyamo/blueprint-paywall/internal/ledger"
)

func newLedgerCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the durable fulfillment ledger",
	}
	get := &cobra.Command{
		Use:   "get SESSION_ID",
		Short: "Print the fulfillment record for a checkout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := config.RedisOptions(v.GetString(keyKVURL), v.GetString(keyKVToken))
			if err != nil {
				return err
			}
			if opt == nil {
				return errors.New("ledger endpoint is not set (--kv-url or KV_URL)")
			}
			rdb := redis.NewClient(opt)
			defer rdb.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			store := ledger.NewRedisStore(rdb, v.GetString(keyNamespace))
			f, err := store.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", store.Key(args[0]), err)
			}
			if f == nil {
				return fmt.Errorf("no fulfillment recorded for %s", args[0])
			}
			ttl, err := rdb.TTL(ctx, store.Key(args[0])).Result()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Record    any    `json:"record"`
				CreatedAt string `json:"created_at"`
				ExpiresIn string `json:"expires_in"`
			}{f, f.CreatedTime().Format(time.RFC3339), ttl.Round(time.Second).String()})
		},
	}
	cmd.AddCommand(get)
	return cmd
}
