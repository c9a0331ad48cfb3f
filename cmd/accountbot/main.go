package main

import (
	"fmt"
	"os"

	"github.com/sessionvault/accountbot/core/cmd"
	"github.com/sessionvault/accountbot/internal/bot"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg, ok := carrier.(*bot.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			// No verification backend is bundled; deployments embed
			// their own client and pass its dialer here.
			return bot.New(cfg, nil)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "accountbot: %v\n", err)
		os.Exit(1)
	}
}
