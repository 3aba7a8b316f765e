package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/tron-node-provider/services"
	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/utils"
)

// CallOptions holds options for the call command
type CallOptions struct {
	*GlobalOptions

	Method string `validate:"oneof=GET POST"`
	Path   string `validate:"required,startswith=/"`

	// Data is the raw JSON request body
	Data string

	// Query holds key=value pairs appended to the URL
	Query []string

	// Node pins the call to a role instead of routing by path
	Node string `validate:"omitempty,oneof=full_node solidity_node event_server"`
}

// NewCallCommand creates the call command.
//
// Usage:
//
//	tronctl call METHOD PATH [--data JSON] [--query k=v]... [--node ROLE]
func NewCallCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &CallOptions{GlobalOptions: globalOpts}

	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send one API call to a node",
		Long: `Send a single GET or POST to a node and print the decoded response.

The target node is chosen from the path prefix unless --node is given. JSON
responses are printed indented; anything else is printed as returned.`,
		Example: `  # Latest block from the full node
  tronctl call GET /wallet/getnowblock

  # Account from the solidity node
  tronctl call POST /walletsolidity/getaccount --data '{"address":"TXYZ","visible":true}'

  # Contract events
  tronctl call GET /event/contract/TXYZ --query size=20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Method = strings.ToUpper(args[0])
			opts.Path = args[1]
			return runCall(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&opts.Query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.Node, "node", "", "node role to call (default: routed by path)")

	return cmd
}

func runCall(cmd *cobra.Command, opts *CallOptions) error {
	if err := utils.ValidateStruct(opts); err != nil {
		if fields := utils.GetValidationFields(err); len(fields) > 0 {
			return fmt.Errorf("%w: %v", err, fields)
		}
		return err
	}

	body, err := parseData(opts.Data)
	if err != nil {
		return err
	}
	query, err := parseQuery(opts.Query)
	if err != nil {
		return err
	}

	reg, cleanup, err := opts.registry()
	if err != nil {
		return err
	}
	defer cleanup()

	role := providers.Route(opts.Path)
	if opts.Node != "" {
		role = providers.Role(opts.Node)
	}
	provider, err := reg.Get(role)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := provider.Request(ctx, opts.Method, opts.Path, body, query)
	if err != nil {
		if nodeErr, ok := providers.AsNodeError(err); ok && nodeErr.Text != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), nodeErr.Text)
		}
		return err
	}

	return printData(cmd, data)
}

func parseData(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	if !json.Valid([]byte(data)) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "--data is not valid JSON", nil)
	}
	return json.RawMessage(data), nil
}

func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	query := make(url.Values, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "query must be key=value", nil).
				WithDetail("query", pair)
		}
		query.Add(key, value)
	}
	return query, nil
}

func printData(cmd *cobra.Command, data any) error {
	out := cmd.OutOrStdout()
	if text, ok := data.(string); ok {
		fmt.Fprintln(out, text)
		return nil
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Fprintln(out, string(encoded))
	return nil
}
