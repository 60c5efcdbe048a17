package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ClipFinance/dex-engine/tools"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds the dexctl command tree around a fresh viper instance.
func newRootCmd() *cobra.Command {
	a := &app{viper: viper.New()}

	root := &cobra.Command{
		Use:   "dexctl",
		Short: "Self-custody token swaps on Uniswap V3 across EVM chains",
		Long: `dexctl quotes and executes Uniswap V3 swaps, moves tokens and inspects
token contracts from locally stored wallets.

Configuration comes from flags, DEX_* environment variables and an optional
YAML file (--config). Keys never leave the vault.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(a.viper, cmd); err != nil {
				return err
			}
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML config file")
	flags.Uint64("chain-id", 1, "chain to operate on")
	flags.StringSlice("rpc-url", nil, "RPC endpoints of the chain, tried in order")
	flags.String("wallet", tools.DefaultWalletID, "wallet id in the vault")
	flags.Bool("safety-guard", false, "probe unlisted tokens for honeypots before buying")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "text", "log format, text or json")
	flags.String("vault-dir", "", "keystore directory; wallets are kept in memory when empty")
	flags.String("db-dsn", "", "Postgres DSN of the chain config store")

	root.AddCommand(newToolCommands(a)...)
	root.AddCommand(newMonitorCmd(a), newNetworksCmd(a))
	return root
}

// Execute runs dexctl until it finishes or receives SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
