package player

import (
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"nselftv/player/abr"
	"nselftv/player/internal/api"
	"nselftv/player/internal/config"
	"nselftv/player/internal/server"
	"nselftv/player/internal/session"
	"nselftv/player/internal/simulate"
)

var Service *Main

func init() {
	Service = &Main{
		ServerConfig:   &config.Server{},
		PlaybackConfig: &config.Playback{},
	}
}

type Main struct {
	ServerConfig   *config.Server
	PlaybackConfig *config.Playback

	logger     zerolog.Logger
	session    *session.ManagerCtx
	apiManager *api.ApiManagerCtx
	server     *server.ManagerCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

func (main *Main) Start() {
	playback := main.PlaybackConfig

	controller := abr.New(playback.Ladder, &playback.Abr)
	model := simulate.New(&playback.Simulate)

	main.session = session.New(controller, model, &session.Config{
		PollInterval: playback.PollInterval,
		HistorySize:  playback.HistorySize,
	})
	main.session.Start()

	main.apiManager = api.New(main.session)

	main.server = server.New(main.ServerConfig)
	main.server.Mount(main.apiManager.Mount)
	main.server.Start()
}

// ConfigReload applies what can be applied to a running session. The
// quality ladder is immutable per session, changes to it only take
// effect on restart.
func (main *Main) ConfigReload() {
	if main.session == nil {
		return
	}

	main.session.SetPollInterval(main.PlaybackConfig.PollInterval)
}

func (main *Main) Shutdown() {
	main.session.Shutdown()

	if err := main.server.Shutdown(); err != nil {
		main.logger.Err(err).Msg("server shutdown with an error")
	} else {
		main.logger.Debug().Msg("server shutdown")
	}
}

func (main *Main) ServeCommand(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting playback service")
	main.Start()
	main.logger.Info().Msg("service ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	sig := <-quit

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.Shutdown()
	main.logger.Info().Msg("shutdown complete")
}
