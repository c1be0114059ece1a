package abr

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ControllerCtx picks which rendition of an ordered quality ladder to
// request next, based on buffered seconds of media polled by the player.
// Downgrades are applied immediately to keep the decoder fed, upgrades
// are debounced by a minimum dwell time so that noisy buffer samples do
// not cause the selection to flap.
type ControllerCtx struct {
	logger zerolog.Logger
	levels []QualityLevel
	config Config
	clock  Clock

	currentLevel int
	currentZone  BufferZone
	bufferLength float64
	dwellStart   time.Time
	lastChange   time.Time

	// non-nil exactly while a seek is in flight
	seek *seekState
}

type seekState struct {
	preSeekLevel int
}

func New(levels []QualityLevel, config *Config) *ControllerCtx {
	return NewWithClock(levels, config, systemClock{})
}

func NewWithClock(levels []QualityLevel, config *Config, clock Clock) *ControllerCtx {
	if config == nil {
		config = &Config{}
	}

	now := clock.Now()
	return &ControllerCtx{
		logger:      log.With().Str("module", "abr").Logger(),
		levels:      append([]QualityLevel{}, levels...),
		config:      config.withDefaultValues(),
		clock:       clock,
		currentZone: ZoneEmergency,
		dwellStart:  now,
		lastChange:  now,
	}
}

// Update consumes one buffer sample together with the seek-in-progress
// flag and returns the index of the level to request next. It is the
// sole mutator and is meant to be called serially by the polling loop.
func (c *ControllerCtx) Update(bufferLength float64, seeking bool) int {
	zone := c.config.Thresholds.classify(bufferLength)

	switch {
	case seeking && c.seek == nil:
		// seek begins: hedge with an immediate one-level drop, then
		// freeze decisions until the seek ends
		c.seek = &seekState{preSeekLevel: c.currentLevel}
		if c.currentLevel > 0 {
			c.currentLevel--
		}

		c.logger.Debug().
			Int("level", c.currentLevel).
			Int("pre_seek_level", c.seek.preSeekLevel).
			Msg("seek started")
	case seeking:
		// still seeking, level stays frozen
	case c.seek != nil:
		// seek ends: restore the level recorded at seek start, the
		// buffer sample is momentarily meaningless
		c.currentLevel = c.seek.preSeekLevel
		c.seek = nil

		c.logger.Debug().
			Int("level", c.currentLevel).
			Msg("seek ended")
	default:
		c.apply(zone, c.target(zone, bufferLength))
	}

	// sample and zone are recorded on every path, frozen or not
	c.bufferLength = bufferLength
	c.currentZone = zone

	return c.currentLevel
}

// target computes the level the zone policy asks for, before dwell
// gating. The returned value is always within [0, maxLevel].
func (c *ControllerCtx) target(zone BufferZone, buffer float64) int {
	maxLevel := len(c.levels) - 1
	if maxLevel <= 0 {
		// empty or single-level ladder, nothing to choose
		return 0
	}

	var target int
	switch zone {
	case ZoneEmergency:
		target = 0
	case ZoneStartup:
		target = c.currentLevel + 1
	case ZoneRamp:
		target = c.currentLevel + 2
	case ZoneSteady:
		ramp := c.config.Thresholds.Ramp
		span := c.config.TargetBuffer - ramp
		if span <= 0 {
			target = maxLevel
			break
		}

		ratio := (buffer - ramp) / span
		if ratio < 0 {
			ratio = 0
		} else if ratio > 1 {
			ratio = 1
		}

		// round half up
		target = int(math.Floor(ratio*float64(maxLevel) + 0.5))
	case ZoneFull:
		target = maxLevel
	}

	if target < 0 {
		target = 0
	} else if target > maxLevel {
		target = maxLevel
	}
	return target
}

// apply runs dwell gating: downgrades take effect immediately, upgrades
// only once the current level has been held for the minimum dwell time.
func (c *ControllerCtx) apply(zone BufferZone, target int) {
	switch {
	case target < c.currentLevel:
		now := c.clock.Now()
		c.logger.Debug().
			Int("from", c.currentLevel).
			Int("to", target).
			Str("zone", zone.String()).
			Msg("downgrade")

		c.currentLevel = target
		c.dwellStart = now
		c.lastChange = now
	case target > c.currentLevel:
		now := c.clock.Now()
		if now.Sub(c.dwellStart) < c.config.MinDwellTime {
			// not eligible yet, existing deadline keeps counting
			return
		}

		c.logger.Debug().
			Int("from", c.currentLevel).
			Int("to", target).
			Str("zone", zone.String()).
			Msg("upgrade")

		c.currentLevel = target
		c.dwellStart = now
		c.lastChange = now
	}
}

// CurrentLevel returns the last selected level without recomputation.
func (c *ControllerCtx) CurrentLevel() int {
	return c.currentLevel
}

// Levels returns a copy of the quality ladder.
func (c *ControllerCtx) Levels() []QualityLevel {
	return append([]QualityLevel{}, c.levels...)
}

// State returns a fresh snapshot that shares no memory with the
// controller, so callers cannot drive decisions off internal state.
func (c *ControllerCtx) State() State {
	state := State{
		CurrentLevel:      c.currentLevel,
		CurrentZone:       c.currentZone,
		BufferLength:      c.bufferLength,
		DwellStart:        c.dwellStart,
		LastQualityChange: c.lastChange,
	}

	if c.seek != nil {
		preSeekLevel := c.seek.preSeekLevel
		state.SeekPending = true
		state.PreSeekLevel = &preSeekLevel
	}

	return state
}
