package abr

import (
	"sort"
	"time"
)

// QualityLevel is a single rendition of the stream ladder. Index ascends
// with bitrate, so levels[0] is always the cheapest rendition.
type QualityLevel struct {
	Index   int    `mapstructure:"index"`
	Bitrate int    `mapstructure:"bitrate"` // in kilobits
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	Name    string `mapstructure:"name"`
}

// BufferZone classifies a single buffer sample against the configured
// thresholds. It is derived from the most recent sample only, never
// carried over between updates.
type BufferZone int

const (
	ZoneEmergency BufferZone = iota
	ZoneStartup
	ZoneRamp
	ZoneSteady
	ZoneFull
)

func (z BufferZone) String() string {
	switch z {
	case ZoneEmergency:
		return "emergency"
	case ZoneStartup:
		return "startup"
	case ZoneRamp:
		return "ramp"
	case ZoneSteady:
		return "steady"
	case ZoneFull:
		return "full"
	default:
		return "unknown"
	}
}

// BufferThresholds are the ascending zone boundaries, in seconds of
// buffered media. A boundary value belongs to the zone it opens.
type BufferThresholds struct {
	Emergency float64 `mapstructure:"emergency"`
	Startup   float64 `mapstructure:"startup"`
	Ramp      float64 `mapstructure:"ramp"`
	Steady    float64 `mapstructure:"steady"`
}

func (t BufferThresholds) classify(buffer float64) BufferZone {
	switch {
	case buffer < t.Emergency:
		return ZoneEmergency
	case buffer < t.Startup:
		return ZoneStartup
	case buffer < t.Ramp:
		return ZoneRamp
	case buffer < t.Steady:
		return ZoneSteady
	default:
		return ZoneFull
	}
}

// normalized returns the thresholds sorted ascending, so that an
// out-of-order configuration cannot misclassify every sample.
func (t BufferThresholds) normalized() BufferThresholds {
	values := []float64{t.Emergency, t.Startup, t.Ramp, t.Steady}
	sort.Float64s(values)

	return BufferThresholds{
		Emergency: values[0],
		Startup:   values[1],
		Ramp:      values[2],
		Steady:    values[3],
	}
}

type Config struct {
	Thresholds   BufferThresholds `mapstructure:"thresholds"`
	TargetBuffer float64          `mapstructure:"target-buffer"`
	MinDwellTime time.Duration    `mapstructure:"min-dwell-time"`
}

func (c Config) withDefaultValues() Config {
	if c.Thresholds.Emergency == 0 {
		c.Thresholds.Emergency = 5
	}
	if c.Thresholds.Startup == 0 {
		c.Thresholds.Startup = 15
	}
	if c.Thresholds.Ramp == 0 {
		c.Thresholds.Ramp = 30
	}
	if c.Thresholds.Steady == 0 {
		c.Thresholds.Steady = 60
	}
	c.Thresholds = c.Thresholds.normalized()

	if c.TargetBuffer == 0 {
		c.TargetBuffer = c.Thresholds.Steady
	}
	if c.MinDwellTime == 0 {
		c.MinDwellTime = 10 * time.Second
	}
	return c
}

// State is a point-in-time copy of the controller internals, intended
// for diagnostics and telemetry. Mutating it has no effect on the
// controller.
type State struct {
	CurrentLevel      int        `json:"current_level"`
	CurrentZone       BufferZone `json:"current_zone"`
	BufferLength      float64    `json:"buffer_length"`
	DwellStart        time.Time  `json:"dwell_start"`
	LastQualityChange time.Time  `json:"last_quality_change"`
	SeekPending       bool       `json:"seek_pending"`
	PreSeekLevel      *int       `json:"pre_seek_level,omitempty"`
}

// Clock supplies the current time, so that dwell timing can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Controller interface {
	Update(bufferLength float64, seeking bool) int
	CurrentLevel() int
	State() State
	Levels() []QualityLevel
}
