package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ClipFinance/dex-engine/tools"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	numericArgs = map[string]bool{
		"chain_id": true, "slippage_bps": true, "fee_tier": true, "blocks": true,
		"decimals": true, "token_in_decimals": true, "token_out_decimals": true,
	}
	listArgs = map[string]bool{"tokens": true}
)

// newToolCommands returns one subcommand per toolbox operation. Arguments
// are key=value pairs, a JSON object in --args, or both with the pairs
// taking precedence.
func newToolCommands(a *app) []*cobra.Command {
	catalog := tools.Tools()
	commands := make([]*cobra.Command, 0, len(catalog))

	for _, tool := range catalog {
		tool := tool
		var (
			rawArgs string
			yes     bool
		)

		cmd := &cobra.Command{
			Use:   tool.Name + " [key=value...]",
			Short: tool.Description,
			RunE: func(cmd *cobra.Command, pairs []string) error {
				args, chainID, err := buildArgs(rawArgs, pairs)
				if err != nil {
					return err
				}

				toolbox, release, err := a.toolbox(cmd.Context(), chainID)
				if err != nil {
					return err
				}
				defer release()

				approved := yes
				if tool.RequiresApproval && !approved {
					if tool.Name == tools.OpSwap {
						preview, err := toolbox.Execute(cmd.Context(), tools.OpQuote, args, false)
						if err != nil {
							return err
						}
						fmt.Fprintln(cmd.OutOrStdout(), preview)
					}
					if approved, err = confirm(cmd, tool.Name); err != nil {
						return err
					}
					if !approved {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
						return nil
					}
				}

				report, err := toolbox.Execute(cmd.Context(), tool.Name, args, approved)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report)
				return nil
			},
		}
		cmd.Flags().StringVar(&rawArgs, "args", "", "arguments as a JSON object")
		if tool.RequiresApproval {
			cmd.Flags().BoolVarP(&yes, "yes", "y", false, "execute without asking for confirmation")
		}
		commands = append(commands, cmd)
	}
	return commands
}

// buildArgs merges a JSON object and key=value pairs into the arguments of a
// tool call. It also returns the chain_id argument, zero when absent.
func buildArgs(raw string, pairs []string) (json.RawMessage, uint64, error) {
	args := map[string]interface{}{}
	if raw != "" {
		decoder := json.NewDecoder(strings.NewReader(raw))
		decoder.UseNumber()
		if err := decoder.Decode(&args); err != nil {
			return nil, 0, errors.Wrap(err, "invalid --args")
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, 0, errors.Errorf("argument %q is not key=value", pair)
		}
		switch {
		case numericArgs[key]:
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, 0, errors.Wrapf(err, "argument %s", key)
			}
			args[key] = n
		case listArgs[key]:
			args[key] = strings.Split(value, ",")
		default:
			args[key] = value
		}
	}

	var chainID uint64
	switch v := args["chain_id"].(type) {
	case uint64:
		chainID = v
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return nil, 0, errors.Wrap(err, "argument chain_id")
		}
		chainID = n
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to encode arguments")
	}
	return encoded, chainID, nil
}

// confirm asks on the command input whether to run a fund-moving tool.
func confirm(cmd *cobra.Command, name string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "Execute %s? [y/N] ", name)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
