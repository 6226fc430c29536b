package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// outputSampleRate is the rate the speaker runs at; decoded audio at a
// different rate is resampled to it.
const outputSampleRate = beep.SampleRate(44100)

// speakerBuffer is the hardware-side buffer length.
const speakerBuffer = 100 * time.Millisecond

var speakerOnce sync.Once

// Output is the process-wide audio device. The speaker is initialized
// once and a mixer plays for the lifetime of the process; sinks come
// and go by attaching to the mixer.
type Output struct {
	sampleRate beep.SampleRate
	mixer      *beep.Mixer
}

// OpenOutput initializes the speaker and starts the mixer. Call once
// per process.
func OpenOutput() (*Output, error) {
	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(outputSampleRate, outputSampleRate.N(speakerBuffer))
	})
	if initErr != nil {
		return nil, fmt.Errorf("initialize speaker: %w", initErr)
	}

	out := &Output{
		sampleRate: outputSampleRate,
		mixer:      &beep.Mixer{},
	}
	// The mixer streams silence while it has no sources, so it can play
	// for the whole process lifetime.
	speaker.Play(out.mixer)
	return out, nil
}

// SampleRate returns the rate the device runs at.
func (o *Output) SampleRate() beep.SampleRate {
	return o.sampleRate
}

// attach adds a streamer to the device mixer.
func (o *Output) attach(s beep.Streamer) {
	speaker.Lock()
	o.mixer.Add(s)
	speaker.Unlock()
}
