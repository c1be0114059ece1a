package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepFillsAndDrains(t *testing.T) {
	m := New(&Config{
		Trace:         []TraceStep{{Duration: time.Minute, Bandwidth: 4000}},
		InitialBuffer: 10,
	})

	// downloading a 2000 kbit rendition at 4000 kbit/s gains a second
	// of media per second on top of the one being played back
	buffer := m.Step(time.Second, 2000)
	assert.InDelta(t, 11, buffer, 0.001)

	// bitrate above bandwidth drains the buffer
	buffer = m.Step(time.Second, 8000)
	assert.InDelta(t, 10.5, buffer, 0.001)
}

func TestStepNeverNegative(t *testing.T) {
	m := New(&Config{
		Trace: []TraceStep{{Duration: time.Minute, Bandwidth: 100}},
	})

	for i := 0; i < 10; i++ {
		buffer := m.Step(time.Second, 8000)
		assert.GreaterOrEqual(t, buffer, float64(0))
	}
}

func TestStepCapsAtMaxBuffer(t *testing.T) {
	m := New(&Config{
		Trace:     []TraceStep{{Duration: time.Minute, Bandwidth: 100000}},
		MaxBuffer: 30,
	})

	var buffer float64
	for i := 0; i < 60; i++ {
		buffer = m.Step(time.Second, 1000)
	}
	assert.Equal(t, float64(30), buffer)
}

func TestTraceLoops(t *testing.T) {
	m := New(&Config{
		Trace: []TraceStep{
			{Duration: 2 * time.Second, Bandwidth: 1000},
			{Duration: 2 * time.Second, Bandwidth: 5000},
		},
	})

	assert.Equal(t, 1000, m.bandwidthAt(0))
	assert.Equal(t, 5000, m.bandwidthAt(3*time.Second))
	assert.Equal(t, 1000, m.bandwidthAt(4*time.Second))
	assert.Equal(t, 5000, m.bandwidthAt(7*time.Second))
}

func TestFlushAndOverride(t *testing.T) {
	m := New(&Config{InitialBuffer: 20})

	m.Flush()
	assert.Equal(t, float64(0), m.BufferLength())

	m.SetBuffer(45)
	assert.Equal(t, float64(45), m.BufferLength())

	m.SetBuffer(-3)
	assert.Equal(t, float64(0), m.BufferLength())
}
