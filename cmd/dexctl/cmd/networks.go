package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ClipFinance/dex-engine/chainmanager"
	"github.com/spf13/cobra"
)

func newNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the chain table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			networks, err := a.networks(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHAIN ID\tNAME\tNATIVE\tSWAPS\tFEE TIER\tTOKENS\tRPC\tEXPLORER")
			for _, id := range chainmanager.SortedChainIDs(networks) {
				network := networks[id]
				swaps := "no"
				if network.SupportsSwaps() {
					swaps = "yes"
				}
				rpc := "-"
				if len(network.RpcUrls) > 0 {
					rpc = strings.Join(network.RpcUrls, ",")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					id, network.Name, network.NativeSymbol, swaps, network.DefaultFeeTier, len(network.Tokens), rpc, network.ExplorerURL)
			}
			return w.Flush()
		},
	}
}
