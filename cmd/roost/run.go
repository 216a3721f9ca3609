package main

import (
	"fmt"
	"strings"

	"github.com/casualjim/roost/internal/console"
	"github.com/casualjim/roost/workflow"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

func (a *app) runCmd() *cobra.Command {
	var (
		inputs []string
		dump   bool
		asJSON bool
		raw    bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "run <framework-id> <process-id>",
		Short: "Run a process to completion with the configured agents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseInputs(inputs)
			if err != nil {
				return err
			}
			sys, err := a.system(cmd)
			if err != nil {
				return err
			}
			if watch {
				if err := sys.Protocol.RegisterAgent(console.NewTap("console", cmd.ErrOrStderr())); err != nil {
					return err
				}
				if _, err := sys.Protocol.Subscribe("console", workflow.DefaultTopic, nil); err != nil {
					return err
				}
			}

			st, err := sys.Run(cmd.Context(), args[0], args[1], data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case dump:
				printer := pp.New()
				printer.SetOutput(out)
				printer.SetColoringEnabled(!color.NoColor)
				_, err = printer.Println(st)
				return err
			case asJSON:
				b, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}
			md := console.StatusMarkdown(st)
			if !raw {
				if md, err = console.Render(md, 100); err != nil {
					return err
				}
			}
			_, err = fmt.Fprint(out, md)
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "initial workflow data as key=value, values are parsed as JSON when possible")
	cmd.Flags().BoolVar(&dump, "dump", false, "pretty print the final status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the final status as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown report without rendering it")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "print workflow notifications to stderr")
	cmd.MarkFlagsMutuallyExclusive("dump", "json", "raw")
	return cmd
}

// parseInputs turns key=value pairs into workflow data. Values that are
// valid JSON keep their type, anything else is a string.
func parseInputs(pairs []string) (map[string]any, error) {
	data := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		data[key] = v
	}
	return data, nil
}
