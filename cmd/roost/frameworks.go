package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/casualjim/roost/internal/console"
	"github.com/casualjim/roost/process"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) frameworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "frameworks",
		Aliases: []string{"fw"},
		Short:   "Inspect framework documents",
	}
	cmd.AddCommand(a.frameworksListCmd(), a.frameworksShowCmd(), frameworksValidateCmd())
	return cmd
}

func (a *app) frameworksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the frameworks in the storage directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := process.NewRepository(a.cfg.StorageDir)
			report, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tVERSION\tPROCESSES")
			for _, fw := range repo.Frameworks() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", fw.ID, fw.Name, fw.Type, fw.Version, len(fw.Processes))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for file, reason := range report.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", color.YellowString("skipped"), file, reason)
			}
			return nil
		},
	}
}

func (a *app) frameworksShowCmd() *cobra.Command {
	var raw bool
	var width int
	cmd := &cobra.Command{
		Use:   "show <framework-id>",
		Short: "Render the process tree of a framework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := process.NewRepository(a.cfg.StorageDir)
			if _, err := repo.Load(cmd.Context()); err != nil {
				return err
			}
			fw, err := repo.Framework(args[0])
			if err != nil {
				return err
			}
			md := console.FrameworkMarkdown(fw)
			if !raw {
				if md, err = console.Render(md, width); err != nil {
					return err
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown instead of rendering it")
	cmd.Flags().IntVar(&width, "width", 100, "wrap width of the rendered output")
	return cmd
}

var errInvalidDocuments = errors.New("some documents are invalid")

func frameworksValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check framework documents without loading them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				fw, err := decodeFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", color.RedString("invalid"), path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", color.GreenString("ok"), path, fw.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidDocuments, failed, len(args))
			}
			return nil
		},
	}
}

func decodeFile(path string) (*process.Framework, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return process.Decode(f)
}
