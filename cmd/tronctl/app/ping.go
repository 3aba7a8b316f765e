package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/tron-node-provider/services/providers"
)

// NewPingCommand creates the ping command.
//
// Usage:
//
//	tronctl ping [ROLE...]
func NewPingCommand(globalOpts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping [ROLE...]",
		Short: "Check whether nodes answer their status page",
		Long: `Probe each node's status page and report whether it is connected.

Roles are full_node, solidity_node and event_server. With no arguments every
role is probed. The command fails when any probed node is unreachable.`,
		Example: `  # Probe all nodes
  tronctl ping

  # Probe a local full node only
  tronctl ping full_node --full-node http://127.0.0.1:8090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(cmd, globalOpts, args)
		},
	}
}

func runPing(cmd *cobra.Command, opts *GlobalOptions, args []string) error {
	roles := providers.Roles
	if len(args) > 0 {
		roles = make([]providers.Role, 0, len(args))
		for _, arg := range args {
			role, err := providers.ParseRole(arg)
			if err != nil {
				return err
			}
			roles = append(roles, role)
		}
	}

	reg, cleanup, err := opts.registry()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	down := 0
	for _, role := range roles {
		provider, err := reg.Get(role)
		if err != nil {
			return err
		}

		state := "connected"
		if !provider.IsConnected(ctx) {
			state = "unreachable"
			down++
		}
		fmt.Fprintf(out, "%-14s %-12s %s\n", role, state, provider.NodeURL())
	}

	if down > 0 {
		return fmt.Errorf("%d of %d node(s) unreachable", down, len(roles))
	}
	return nil
}
