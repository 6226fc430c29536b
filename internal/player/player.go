// Package player implements the playback engine: manifest-driven
// segment streaming into an audio sink, with crossfade, prefetch, and a
// sample tap for visualization. Player is its single-threaded
// message-passing front.
package player

import (
	"net/http"
	"time"

	"github.com/Illogicalll/sctui-sub000/internal/api"
	"github.com/Illogicalll/sctui-sub000/internal/auth"
	"github.com/Illogicalll/sctui-sub000/internal/config"
)

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPlayFromPosition
	cmdPreloadNext
	cmdPause
	cmdResume
	cmdVolumeUp
	cmdVolumeDown
	cmdFastForward
	cmdRewind
)

type command struct {
	kind       commandKind
	track      api.Track
	positionMS int64
}

// Player owns the engine and serializes every playback operation
// through one command loop, so engine state never sees two writers.
type Player struct {
	cmds   chan command
	status *Status
	wave   *WaveBuffer
	slot   *sinkSlot
	engine *Engine

	volumeStep float64
	seekStep   time.Duration
}

// New starts the command loop and returns the facade.
func New(out *Output, client *http.Client, token *auth.Store, creds auth.Credentials, cfg *config.Config) *Player {
	status := NewStatus()
	wave := NewWaveBuffer(config.WaveBufferCap)
	slot := &sinkSlot{}

	p := &Player{
		cmds:       make(chan command, 64),
		status:     status,
		wave:       wave,
		slot:       slot,
		engine:     NewEngine(out, client, token, creds, slot, status, wave),
		volumeStep: cfg.VolumeStep,
		seekStep:   cfg.SeekStep,
	}

	go p.loop()
	return p
}

// Play starts track from the beginning.
func (p *Player) Play(track api.Track) {
	p.cmds <- command{kind: cmdPlay, track: track}
}

// PlayFromPosition starts track at positionMS.
func (p *Player) PlayFromPosition(track api.Track, positionMS int64) {
	p.cmds <- command{kind: cmdPlayFromPosition, track: track, positionMS: positionMS}
}

// PreloadNext warms the cache for the track expected to play next.
func (p *Player) PreloadNext(track api.Track) {
	p.cmds <- command{kind: cmdPreloadNext, track: track}
}

// Pause suspends playback.
func (p *Player) Pause() {
	p.cmds <- command{kind: cmdPause}
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.cmds <- command{kind: cmdResume}
}

// VolumeUp raises the sink volume one step.
func (p *Player) VolumeUp() {
	p.cmds <- command{kind: cmdVolumeUp}
}

// VolumeDown lowers the sink volume one step.
func (p *Player) VolumeDown() {
	p.cmds <- command{kind: cmdVolumeDown}
}

// FastForward seeks forward one seek step.
func (p *Player) FastForward() {
	p.cmds <- command{kind: cmdFastForward}
}

// Rewind seeks backward one seek step.
func (p *Player) Rewind() {
	p.cmds <- command{kind: cmdRewind}
}

// IsPlaying reports whether audio is running.
func (p *Player) IsPlaying() bool {
	return p.status.IsPlaying()
}

// IsSeeking reports whether a seek is in flight.
func (p *Player) IsSeeking() bool {
	return p.status.IsSeeking()
}

// Elapsed returns the playback position in milliseconds.
func (p *Player) Elapsed() int64 {
	return p.status.Elapsed()
}

// CurrentTrack returns the playing track, if any.
func (p *Player) CurrentTrack() (api.Track, bool) {
	return p.status.CurrentTrack()
}

// Volume returns the current sink level, or 1 when no sink exists.
func (p *Player) Volume() float64 {
	if s := p.slot.get(); s != nil {
		return s.Level()
	}
	return 1.0
}

// WaveSnapshot copies the visualizer sample ring.
func (p *Player) WaveSnapshot() []float32 {
	return p.wave.Snapshot()
}

// loop is the single-threaded command executor. Blocking on HTTP here
// is fine: operations are short, and the UI only ever enqueues.
func (p *Player) loop() {
	for cmd := range p.cmds {
		switch cmd.kind {
		case cmdPlay:
			p.engine.PlayFromPosition(cmd.track, 0)

		case cmdPlayFromPosition:
			p.engine.PlayFromPosition(cmd.track, cmd.positionMS)

		case cmdPreloadNext:
			p.engine.PreloadNext(cmd.track)

		case cmdPause:
			if s := p.slot.get(); s != nil {
				s.Pause()
				p.status.MarkPaused()
			}

		case cmdResume:
			if s := p.slot.get(); s != nil {
				s.Play()
				p.status.MarkResumed()
			}

		case cmdVolumeUp:
			if s := p.slot.get(); s != nil {
				s.SetLevel(s.Level() + p.volumeStep)
			}

		case cmdVolumeDown:
			if s := p.slot.get(); s != nil {
				s.SetLevel(s.Level() - p.volumeStep)
			}

		case cmdFastForward:
			p.seekBy(p.seekStep)

		case cmdRewind:
			p.seekBy(-p.seekStep)
		}
	}
}

// seekBy computes the new position from current elapsed and either
// stops (past the end) or replays the current track from there. The
// seeking flag gates concurrent seeks: a request arriving while one is
// in flight is dropped.
func (p *Player) seekBy(delta time.Duration) {
	if !p.status.BeginSeek() {
		return
	}
	defer p.status.EndSeek()

	track, ok := p.status.CurrentTrack()
	if !ok {
		return
	}

	next := time.Duration(p.status.Elapsed())*time.Millisecond + delta
	if next < 0 {
		next = 0
	}

	if next >= time.Duration(track.DurationMS)*time.Millisecond {
		if s := p.slot.get(); s != nil {
			s.Stop()
		}
		p.status.MarkStopped(track.DurationMS)
		return
	}

	p.engine.PlayFromPosition(track, next.Milliseconds())
}
