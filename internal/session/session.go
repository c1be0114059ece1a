package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nselftv/player/abr"
)

// BufferSource supplies buffer samples for the polling loop. The real
// media pipeline is out of scope, a simulated model stands in for it.
type BufferSource interface {
	Step(dt time.Duration, bitrate int) float64
	SetBuffer(buffer float64)
	Flush()
}

type Config struct {
	PollInterval time.Duration `mapstructure:"poll-interval"`
	HistorySize  int           `mapstructure:"history-size"`
}

func (c Config) withDefaultValues() Config {
	if c.PollInterval == 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.HistorySize == 0 {
		c.HistorySize = 256
	}
	return c
}

// Decision is one entry of the session's decision history.
type Decision struct {
	At      time.Time `json:"at"`
	Buffer  float64   `json:"buffer"`
	Zone    string    `json:"zone"`
	Level   int       `json:"level"`
	Seeking bool      `json:"seeking"`
}

// ManagerCtx drives one ABR controller for the lifetime of a playback
// session: it polls the buffer source at a fixed interval, passes every
// sample through the controller and keeps a bounded decision history.
type ManagerCtx struct {
	logger     zerolog.Logger
	mu         sync.Mutex
	config     Config
	controller abr.Controller
	source     BufferSource

	seeking  bool
	history  []Decision
	shutdown chan struct{}
	done     chan struct{}
	started  bool
}

func New(controller abr.Controller, source BufferSource, config *Config) *ManagerCtx {
	if config == nil {
		config = &Config{}
	}

	return &ManagerCtx{
		logger:     log.With().Str("module", "session").Logger(),
		config:     config.withDefaultValues(),
		controller: controller,
		source:     source,
	}
}

func (m *ManagerCtx) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}

	m.started = true
	m.shutdown = make(chan struct{})
	m.done = make(chan struct{})

	m.logger.Info().
		Dur("poll_interval", m.config.PollInterval).
		Int("levels", len(m.controller.Levels())).
		Msg("session started")

	go m.poll(m.shutdown, m.done)
}

func (m *ManagerCtx) Shutdown() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}

	m.started = false
	close(m.shutdown)
	done := m.done
	m.mu.Unlock()

	<-done
	m.logger.Info().Msg("session shutdown")
}

func (m *ManagerCtx) poll(shutdown <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			m.tick(time.Now())
		}
	}
}

// tick performs one polling step. Split out of the loop so tests can
// drive the session without waiting on the ticker.
func (m *ManagerCtx) tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buffer := m.source.Step(m.config.PollInterval, m.currentBitrate())

	before := m.controller.CurrentLevel()
	level := m.controller.Update(buffer, m.seeking)
	zone := m.controller.State().CurrentZone

	if level != before {
		m.logger.Info().
			Int("from", before).
			Int("to", level).
			Float64("buffer", buffer).
			Str("zone", zone.String()).
			Msg("level changed")
	}

	m.history = append(m.history, Decision{
		At:      now,
		Buffer:  buffer,
		Zone:    zone.String(),
		Level:   level,
		Seeking: m.seeking,
	})
	if len(m.history) > m.config.HistorySize {
		m.history = m.history[len(m.history)-m.config.HistorySize:]
	}
}

// currentBitrate resolves the bitrate the player is downloading at,
// caller must hold the lock.
func (m *ManagerCtx) currentBitrate() int {
	levels := m.controller.Levels()
	if len(levels) == 0 {
		return 0
	}

	level := m.controller.CurrentLevel()
	if level >= len(levels) {
		level = len(levels) - 1
	}
	return levels[level].Bitrate
}

// StartSeek flags an in-progress seek; the controller sees the edge on
// the next poll. The simulated buffer flushes, as a seek outside the
// buffered range would.
func (m *ManagerCtx) StartSeek() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seeking {
		return
	}

	m.seeking = true
	m.source.Flush()
	m.logger.Debug().Msg("seek flagged")
}

func (m *ManagerCtx) EndSeek() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.seeking {
		return
	}

	m.seeking = false
	m.logger.Debug().Msg("seek cleared")
}

// SetBuffer overrides the simulated buffer level.
func (m *ManagerCtx) SetBuffer(buffer float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.source.SetBuffer(buffer)
}

// State returns the controller's diagnostic snapshot.
func (m *ManagerCtx) State() abr.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.controller.State()
}

func (m *ManagerCtx) CurrentLevel() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.controller.CurrentLevel()
}

func (m *ManagerCtx) Levels() []abr.QualityLevel {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.controller.Levels()
}

func (m *ManagerCtx) History() []Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Decision{}, m.history...)
}

// SetPollInterval applies a new polling cadence on configuration
// reload. It takes effect when the session is next started.
func (m *ManagerCtx) SetPollInterval(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if interval <= 0 || interval == m.config.PollInterval {
		return
	}

	m.config.PollInterval = interval
	m.logger.Info().Dur("poll_interval", interval).Msg("poll interval updated")
}
