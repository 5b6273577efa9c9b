package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/relay"
)

func relayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the Telegram notification relay",
		Long: `The relay keeps the bot token on the server and exposes
/api/telegram/{test,stats,alert,send,status} to consoles.`,
	}

	cmd.AddCommand(relayServeCmd())

	return cmd
}

func relayServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the relay API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			bot, err := initBot(cfg)
			if err != nil {
				return err
			}
			if bot == nil {
				return fmt.Errorf("%w: telegram.token and telegram.chat_id are required to run the relay", common.ErrMissingConfig)
			}

			srv, err := relay.New(bot)
			if err != nil {
				return err
			}
			ctx := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), "Relay")
			return srv.Run(ctx, cfg.Relay.Addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from relay.addr)")
	_ = viper.BindPFlag("relay.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
