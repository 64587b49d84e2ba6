package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <action> [json|-]",
	Short: "Run one safety call and print the JSON response",
	Long: `Run one safety call in-process. Arguments are a JSON object given inline
or on stdin with "-". Safety sessions live only for this process, but
enforcement tokens are stored on disk, so discover_patterns and
validate_complete work across invocations (e.g. from CI hooks).

Examples:
  safeguard call discover_patterns '{"task":"add login with OAuth"}'
  echo '{"sessionToken":"ses_...","testsRun":true,"testsPassed":true}' | safeguard call validate_complete -`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	raw, err := callArguments(cmd.InOrStdin(), args[1:])
	if err != nil {
		return err
	}

	_, _, components, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := components.Safety.Dispatch(ctx, args[0], raw)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// callArguments reads the JSON arguments from rest or stdin.
func callArguments(stdin io.Reader, rest []string) (json.RawMessage, error) {
	if len(rest) == 0 {
		return json.RawMessage("{}"), nil
	}
	if rest[0] != "-" {
		return json.RawMessage(rest[0]), nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading arguments from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return json.RawMessage("{}"), nil
	}
	return data, nil
}
