package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"nselftv/player"
	"nselftv/player/internal/config"
)

func init() {
	command := &cobra.Command{
		Use:   "serve",
		Short: "serve playback session",
		Long:  `serve a playback session with its diagnostic HTTP API`,
		Run:   player.Service.ServeCommand,
	}

	configs := []config.Config{
		player.Service.ServerConfig,
		player.Service.PlaybackConfig,
	}

	cobra.OnInitialize(func() {
		for _, cfg := range configs {
			cfg.Set()
		}
		player.Service.Preflight()
	})

	OnConfigLoad(func() {
		for _, cfg := range configs {
			cfg.Set()
		}
		player.Service.ConfigReload()
	})

	for _, cfg := range configs {
		if err := cfg.Init(command); err != nil {
			log.Panic().Err(err).Msg("unable to run serve command")
		}
	}

	rootCmd.AddCommand(command)
}
