package main

import (
	"github.com/casualjim/roost"
	"github.com/casualjim/roost/internal/config"
	"github.com/casualjim/roost/internal/logging"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	storageDir string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "roost",
		Short:        "Run business process frameworks with cooperating agents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("storage-dir") {
				cfg.StorageDir = a.storageDir
			}
			_, err = logging.Setup(logging.Options{
				Level:  cfg.Log.Level,
				Format: logging.Format(cfg.Log.Format),
				Out:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./roost.yaml)")
	cmd.PersistentFlags().StringVar(&a.storageDir, "storage-dir", "", "directory holding framework documents")

	cmd.AddCommand(
		a.frameworksCmd(),
		a.schemaCmd(),
		a.runCmd(),
		a.bridgeCmd(),
	)
	return cmd
}

func (a *app) system(cmd *cobra.Command, options ...roost.Option) (*roost.System, error) {
	sys, err := roost.New(append([]roost.Option{roost.WithConfig(a.cfg)}, options...)...)
	if err != nil {
		return nil, err
	}
	if _, err := sys.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return sys, nil
}
