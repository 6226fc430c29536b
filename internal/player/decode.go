package player

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/gopxl/beep/v2"
	beepmp3 "github.com/gopxl/beep/v2/mp3"
	aacdecoder "github.com/skrashevich/go-aac/pkg/decoder"
)

// decodeSegment turns init||segment bytes into a playable streamer at
// the output rate, discarding skipMS of leading PCM to honor an
// intra-segment position. AAC variants arrive as fragmented MP4; the
// MP3 variant is raw MPEG audio.
func decodeSegment(data []byte, out *Output, skipMS int64) (beep.Streamer, error) {
	var (
		streamer beep.Streamer
		format   beep.Format
		err      error
	)
	if isFragmentedMP4(data) {
		streamer, format, err = decodeFMP4(data)
	} else {
		streamer, format, err = decodeMP3(data)
	}
	if err != nil {
		return nil, err
	}

	if skipMS > 0 {
		discardLeading(streamer, format.SampleRate.N(time.Duration(skipMS)*time.Millisecond))
	}

	if format.SampleRate != out.SampleRate() {
		return beep.Resample(4, format.SampleRate, out.SampleRate(), streamer), nil
	}
	return streamer, nil
}

// isFragmentedMP4 sniffs the leading box header.
func isFragmentedMP4(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	switch string(data[4:8]) {
	case "ftyp", "styp", "moov", "moof":
		return true
	}
	return false
}

// discardLeading drains frames samples from s.
func discardLeading(s beep.Streamer, frames int) {
	buf := make([][2]float64, 512)
	for frames > 0 {
		n := len(buf)
		if frames < n {
			n = frames
		}
		sn, ok := s.Stream(buf[:n])
		frames -= sn
		if !ok || sn == 0 {
			return
		}
	}
}

func decodeMP3(data []byte) (beep.Streamer, beep.Format, error) {
	streamer, format, err := beepmp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode mp3 segment: %w", err)
	}
	return streamer, format, nil
}

// decodeFMP4 demuxes a fragmented MP4 (init + media fragment) and
// decodes its AAC track to PCM.
func decodeFMP4(data []byte) (beep.Streamer, beep.Format, error) {
	file, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("parse fragmented mp4: %w", err)
	}
	if file.Init == nil || file.Init.Moov == nil {
		return nil, beep.Format{}, fmt.Errorf("segment has no init data")
	}

	esds, timescale, err := findAACDescription(file.Init)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if esds.DecConfigDescriptor == nil || esds.DecConfigDescriptor.DecSpecificInfo == nil {
		return nil, beep.Format{}, fmt.Errorf("esds has no decoder specific info")
	}

	dec := aacdecoder.New()
	if err := dec.SetASC(esds.DecConfigDescriptor.DecSpecificInfo.DecConfig); err != nil {
		return nil, beep.Format{}, fmt.Errorf("configure aac decoder: %w", err)
	}

	sampleRate := dec.Config.SampleRate
	if sampleRate <= 0 {
		sampleRate = int(timescale)
	}
	channels := dec.Config.ChanConfig
	if channels < 1 {
		channels = 2
	}

	var trex *mp4.TrexBox
	if file.Init.Moov.Mvex != nil {
		trex = file.Init.Moov.Mvex.Trex
	}

	var pcm []float32
	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, beep.Format{}, fmt.Errorf("extract samples: %w", err)
			}
			for _, sample := range samples {
				frame, err := dec.DecodeFrame(sample.Data)
				if err != nil {
					return nil, beep.Format{}, fmt.Errorf("decode aac frame: %w", err)
				}
				pcm = append(pcm, frame...)
			}
		}
	}
	if len(pcm) == 0 {
		return nil, beep.Format{}, fmt.Errorf("segment decoded to no audio")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: channels,
		Precision:   2,
	}
	return &pcmStreamer{samples: pcm, channels: channels}, format, nil
}

// findAACDescription locates the audio sample entry's esds box the way
// the catalog packages AAC (mp4a inside stsd).
func findAACDescription(init *mp4.InitSegment) (*mp4.EsdsBox, uint32, error) {
	for _, trak := range init.Moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
			continue
		}
		stsd := trak.Mdia.Minf.Stbl.Stsd
		if stsd == nil {
			continue
		}
		for _, child := range stsd.Children {
			if entry, ok := child.(*mp4.AudioSampleEntryBox); ok && entry.Esds != nil {
				var timescale uint32
				if trak.Mdia.Mdhd != nil {
					timescale = trak.Mdia.Mdhd.Timescale
				}
				return entry.Esds, timescale, nil
			}
		}
	}
	return nil, 0, fmt.Errorf("no AAC sample description found")
}

// pcmStreamer streams decoded interleaved samples as stereo frames,
// duplicating mono and dropping channels past the second.
type pcmStreamer struct {
	samples  []float32
	channels int
	pos      int
}

func (p *pcmStreamer) Stream(out [][2]float64) (int, bool) {
	if p.pos >= len(p.samples) {
		return 0, false
	}

	n := 0
	for n < len(out) && p.pos < len(p.samples) {
		left := float64(p.samples[p.pos])
		right := left
		if p.channels > 1 && p.pos+1 < len(p.samples) {
			right = float64(p.samples[p.pos+1])
		}
		p.pos += p.channels
		out[n] = [2]float64{left, right}
		n++
	}
	return n, true
}

func (p *pcmStreamer) Err() error {
	return nil
}
