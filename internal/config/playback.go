package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nselftv/player/abr"
	"nselftv/player/internal/simulate"
)

type Playback struct {
	PollInterval time.Duration
	HistorySize  int

	Ladder   []abr.QualityLevel
	Abr      abr.Config
	Simulate simulate.Config
}

func (Playback) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().Duration("poll-interval", 500*time.Millisecond, "how often the player polls the buffer")
	if err := viper.BindPFlag("poll-interval", cmd.PersistentFlags().Lookup("poll-interval")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("history-size", 256, "how many ABR decisions to keep for diagnostics")
	if err := viper.BindPFlag("history-size", cmd.PersistentFlags().Lookup("history-size")); err != nil {
		return err
	}

	return nil
}

func (p *Playback) Set() {
	p.PollInterval = viper.GetDuration("poll-interval")
	p.HistorySize = viper.GetInt("history-size")

	if err := viper.UnmarshalKey("ladder", &p.Ladder); err != nil {
		panic(err)
	}
	if err := viper.UnmarshalKey("abr", &p.Abr); err != nil {
		panic(err)
	}
	if err := viper.UnmarshalKey("simulate", &p.Simulate); err != nil {
		panic(err)
	}

	if len(p.Ladder) == 0 {
		p.Ladder = DefaultLadder()
	}

	// ladder indices must match positions, whatever the file says
	for i := range p.Ladder {
		p.Ladder[i].Index = i
	}
}

// DefaultLadder is the rendition set used when none is configured.
func DefaultLadder() []abr.QualityLevel {
	return []abr.QualityLevel{
		{Index: 0, Bitrate: 800, Width: 640, Height: 360, Name: "360p"},
		{Index: 1, Bitrate: 2500, Width: 1280, Height: 720, Name: "720p"},
		{Index: 2, Bitrate: 5000, Width: 1920, Height: 1080, Name: "1080p"},
		{Index: 3, Bitrate: 16000, Width: 3840, Height: 2160, Name: "2160p"},
	}
}
