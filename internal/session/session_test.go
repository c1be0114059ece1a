package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nselftv/player/abr"
)

// stubSource replays a fixed sequence of buffer samples.
type stubSource struct {
	samples []float64
	pos     int
	flushed bool
	manual  *float64
}

func (s *stubSource) Step(dt time.Duration, bitrate int) float64 {
	if s.manual != nil {
		return *s.manual
	}
	if s.pos >= len(s.samples) {
		return s.samples[len(s.samples)-1]
	}

	sample := s.samples[s.pos]
	s.pos++
	return sample
}

func (s *stubSource) SetBuffer(buffer float64) { s.manual = &buffer }

func (s *stubSource) Flush() { s.flushed = true }

type frozenClock struct {
	now time.Time
}

func (f *frozenClock) Now() time.Time { return f.now }

func (f *frozenClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func testLadder() []abr.QualityLevel {
	return []abr.QualityLevel{
		{Index: 0, Bitrate: 800, Width: 640, Height: 360, Name: "360p"},
		{Index: 1, Bitrate: 2500, Width: 1280, Height: 720, Name: "720p"},
		{Index: 2, Bitrate: 5000, Width: 1920, Height: 1080, Name: "1080p"},
	}
}

func TestTickDrivesController(t *testing.T) {
	clock := &frozenClock{now: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)}
	controller := abr.NewWithClock(testLadder(), nil, clock)
	source := &stubSource{samples: []float64{0, 65, 65}}

	m := New(controller, source, nil)

	m.tick(clock.Now())
	assert.Equal(t, 0, m.CurrentLevel())
	assert.Equal(t, abr.ZoneEmergency, m.State().CurrentZone)

	// dwell elapses, the full buffer sample lifts the level to the top
	clock.Advance(10 * time.Second)
	m.tick(clock.Now())
	assert.Equal(t, 2, m.CurrentLevel())
	assert.Equal(t, abr.ZoneFull, m.State().CurrentZone)
}

func TestSeekPropagatesToController(t *testing.T) {
	clock := &frozenClock{now: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)}
	controller := abr.NewWithClock(testLadder(), nil, clock)
	source := &stubSource{samples: []float64{65}}

	m := New(controller, source, nil)

	clock.Advance(10 * time.Second)
	m.tick(clock.Now())
	require.Equal(t, 2, m.CurrentLevel())

	m.StartSeek()
	assert.True(t, source.flushed)

	m.tick(clock.Now())
	state := m.State()
	assert.Equal(t, 1, state.CurrentLevel)
	assert.True(t, state.SeekPending)

	m.EndSeek()
	m.tick(clock.Now())
	state = m.State()
	assert.Equal(t, 2, state.CurrentLevel)
	assert.False(t, state.SeekPending)
}

func TestHistoryIsBounded(t *testing.T) {
	clock := &frozenClock{now: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)}
	controller := abr.NewWithClock(testLadder(), nil, clock)
	source := &stubSource{samples: []float64{10}}

	m := New(controller, source, &Config{HistorySize: 4})

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		m.tick(clock.Now())
	}

	history := m.History()
	assert.Len(t, history, 4)

	// oldest entries were dropped, the tail is the most recent tick
	assert.Equal(t, clock.Now(), history[len(history)-1].At)
}

func TestSetBufferOverridesSource(t *testing.T) {
	clock := &frozenClock{now: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)}
	controller := abr.NewWithClock(testLadder(), nil, clock)
	source := &stubSource{samples: []float64{10}}

	m := New(controller, source, nil)
	m.SetBuffer(65)

	clock.Advance(10 * time.Second)
	m.tick(clock.Now())
	assert.Equal(t, abr.ZoneFull, m.State().CurrentZone)
}

func TestStartShutdown(t *testing.T) {
	controller := abr.New(testLadder(), nil)
	source := &stubSource{samples: []float64{10}}

	m := New(controller, source, &Config{PollInterval: 10 * time.Millisecond})

	m.Start()
	// double start must be a no-op
	m.Start()

	time.Sleep(50 * time.Millisecond)
	m.Shutdown()
	// double shutdown must be a no-op
	m.Shutdown()

	assert.NotEmpty(t, m.History())
}
