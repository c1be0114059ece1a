package simulate

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TraceStep is one span of the bandwidth trace. The trace loops once
// exhausted, so a single step means constant bandwidth.
type TraceStep struct {
	Duration  time.Duration `mapstructure:"duration"`
	Bandwidth int           `mapstructure:"bandwidth"` // in kilobits
}

type Config struct {
	Trace         []TraceStep `mapstructure:"trace"`
	InitialBuffer float64     `mapstructure:"initial-buffer"`
	MaxBuffer     float64     `mapstructure:"max-buffer"`
}

func (c Config) withDefaultValues() Config {
	if len(c.Trace) == 0 {
		c.Trace = []TraceStep{
			{Duration: 30 * time.Second, Bandwidth: 6000},
			{Duration: 15 * time.Second, Bandwidth: 1500},
			{Duration: 30 * time.Second, Bandwidth: 9000},
		}
	}
	if c.MaxBuffer == 0 {
		c.MaxBuffer = 120
	}
	return c
}

// ModelCtx is a deterministic stand-in for the media pipeline: playback
// drains the buffer in real time while segment downloads refill it at
// the traced bandwidth relative to the selected rendition's bitrate.
type ModelCtx struct {
	logger zerolog.Logger
	mu     sync.Mutex
	config Config

	elapsed time.Duration
	buffer  float64
}

func New(config *Config) *ModelCtx {
	if config == nil {
		config = &Config{}
	}

	cfg := config.withDefaultValues()
	return &ModelCtx{
		logger: log.With().Str("module", "simulate").Logger(),
		config: cfg,
		buffer: cfg.InitialBuffer,
	}
}

// Step advances the model by dt while the player downloads the
// rendition with the given bitrate, and returns the new buffer length.
func (m *ModelCtx) Step(dt time.Duration, bitrate int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	seconds := dt.Seconds()

	// playback drains one second of media per second
	m.buffer -= seconds
	if m.buffer < 0 {
		m.buffer = 0
	}

	// download refills at trace bandwidth relative to rendition bitrate
	if bitrate > 0 {
		m.buffer += seconds * float64(m.bandwidthAt(m.elapsed)) / float64(bitrate)
	}
	if m.buffer > m.config.MaxBuffer {
		m.buffer = m.config.MaxBuffer
	}

	m.elapsed += dt
	return m.buffer
}

// BufferLength returns the current buffer without advancing the model.
func (m *ModelCtx) BufferLength() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.buffer
}

// SetBuffer overrides the buffer level, for driving the controller into
// specific zones by hand.
func (m *ModelCtx) SetBuffer(buffer float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buffer < 0 {
		buffer = 0
	}
	m.buffer = buffer

	m.logger.Debug().Float64("buffer", buffer).Msg("buffer override")
}

// Flush empties the buffer, as a seek to an unbuffered position would.
func (m *ModelCtx) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buffer = 0
}

func (m *ModelCtx) bandwidthAt(elapsed time.Duration) int {
	var total time.Duration
	for _, step := range m.config.Trace {
		total += step.Duration
	}
	if total <= 0 {
		return m.config.Trace[len(m.config.Trace)-1].Bandwidth
	}

	offset := elapsed % total
	for _, step := range m.config.Trace {
		if offset < step.Duration {
			return step.Bandwidth
		}
		offset -= step.Duration
	}

	return m.config.Trace[len(m.config.Trace)-1].Bandwidth
}
