// Package app implements the tronctl command line.
//
// tronctl talks to TRON nodes directly through the same HTTP provider the
// gateway uses. Node addresses come from the TRON_* environment (or .env)
// and can be overridden per invocation with flags.
package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/tron-node-provider/config"
	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/services/providers/httpnode"
	"github.com/upb/tron-node-provider/utils"
	"go.uber.org/zap"
)

const (
	cliName        = "tronctl"
	cliDescription = "tronctl - query TRON full, solidity and event nodes"
)

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	FullNode     string
	SolidityNode string
	EventServer  string
	APIKey       string
	Proxy        string
	Timeout      time.Duration

	// Verbose logs every node exchange to stderr
	Verbose bool
}

// NewTronctlCommand creates the root command with all subcommands.
func NewTronctlCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `tronctl sends HTTP API calls to TRON nodes.

Calls under /walletsolidity and /walletextension go to the solidity node,
/event and /healthcheck go to the event server, and everything else goes to
the full node. Addresses default to TRON_FULL_NODE, TRON_SOLIDITY_NODE and
TRON_EVENT_SERVER.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.FullNode, "full-node", "", "full node address (default: $TRON_FULL_NODE)")
	flags.StringVar(&opts.SolidityNode, "solidity-node", "", "solidity node address (default: $TRON_SOLIDITY_NODE)")
	flags.StringVar(&opts.EventServer, "event-server", "", "event server address (default: $TRON_EVENT_SERVER)")
	flags.StringVar(&opts.APIKey, "api-key", "", "TronGrid API key (default: $TRON_API_KEY)")
	flags.StringVar(&opts.Proxy, "proxy", "", "HTTP proxy for node requests (default: $TRON_PROXY)")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "per-request timeout (default: $TRON_REQUEST_TIMEOUT or 60s)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log node requests")

	cmd.AddCommand(
		NewPingCommand(opts),
		NewCallCommand(opts),
		NewVersionCommand(opts),
	)

	return cmd
}

// nodes merges the flags over the environment configuration.
func (o *GlobalOptions) nodes() (*config.NodesConfig, error) {
	nodes, err := config.LoadNodes()
	if err != nil {
		return nil, err
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&nodes.FullNode, o.FullNode)
	override(&nodes.SolidityNode, o.SolidityNode)
	override(&nodes.EventServer, o.EventServer)
	override(&nodes.APIKey, o.APIKey)
	override(&nodes.Proxy, o.Proxy)
	if o.Timeout > 0 {
		nodes.Timeout = o.Timeout
	}

	if err := utils.ValidateStruct(nodes); err != nil {
		if fields := utils.GetValidationFields(err); len(fields) > 0 {
			return nil, fmt.Errorf("%w: %v", err, fields)
		}
		return nil, err
	}
	return nodes, nil
}

func (o *GlobalOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	logger, err := observability.NewLogger("debug", "text")
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// registry builds one provider per role. The caller closes the returned
// providers through the cleanup func.
func (o *GlobalOptions) registry() (*providers.Registry, func(), error) {
	nodes, err := o.nodes()
	if err != nil {
		return nil, nil, err
	}

	logger := o.logger()
	reg := providers.NewRegistry()
	var owned []*httpnode.Provider
	cleanup := func() {
		for _, p := range owned {
			p.Close()
		}
		_ = logger.Sync()
	}

	for role, nodeURL := range nodes.URLs() {
		p, err := httpnode.New(nodeURL, httpnode.Config{
			Options:    nodes.RequestOptions(),
			StatusPage: role.StatusPage(),
			Name:       string(role),
			Logger:     logger,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("%s: %w", role, err)
		}
		owned = append(owned, p)
		if err := reg.Register(role, p); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return reg, cleanup, nil
}
