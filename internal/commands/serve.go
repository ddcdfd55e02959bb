package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhouzirui/z-research/internal/config"
	"github.com/zhouzirui/z-research/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development research backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), "api")
			ctx := cmd.Context()
			return server.Run(ctx, cfg.Server.Addr, server.NewHandler(ctx, cfg, logger), logger)
		},
	}

	cmd.Flags().String("port", "", "listen address or port (default 8080)")
	cmd.Flags().Duration("demo-delay", 0, "delay between demo tokens")
	bindFlags(v, cmd.Flags(), map[string]string{
		"port":       "port",
		"demo-delay": "demo_delay",
	})
	return cmd
}
