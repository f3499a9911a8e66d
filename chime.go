package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const (
	chimeSampleRate = beep.SampleRate(44100)
	chimeFrequency  = 880.0
	chimeDuration   = 150 * time.Millisecond
	chimeVolume     = 0.3

	// chimeMinInterval keeps a burst of lines from queuing a burst of sounds.
	chimeMinInterval = 250 * time.Millisecond
)

// chimePlayer plays a short sound when a message arrives.
type chimePlayer struct {
	sound *beep.Buffer

	speakerInitOnce sync.Once
	speakerInitErr  error

	mu       sync.Mutex
	lastPlay time.Time
}

// newChimePlayer loads path as the notification sound, or synthesizes a tone
// when path is empty.  The sound is decoded once and replayed from memory.
func newChimePlayer(path string) (*chimePlayer, error) {
	format := beep.Format{SampleRate: chimeSampleRate, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)

	if path == "" {
		buf.Append(sineTone(chimeSampleRate, chimeFrequency, chimeDuration))
		return &chimePlayer{sound: buf}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chime: %w", err)
	}

	var (
		streamer     beep.StreamSeekCloser
		streamFormat beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		streamer, streamFormat, err = mp3.Decode(f)
	case ".wav":
		streamer, streamFormat, err = wav.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported chime format: %s", ext)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode chime: %w", err)
	}
	defer streamer.Close()

	buf.Append(beep.Resample(4, streamFormat.SampleRate, chimeSampleRate, streamer))
	return &chimePlayer{sound: buf}, nil
}

// sineTone returns a mono sine wave, duplicated on both channels, that fades
// out linearly over d.
func sineTone(sr beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := sr.N(d)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= total {
			return 0, false
		}
		for i := range samples {
			if pos >= total {
				break
			}
			t := float64(pos) / float64(sr)
			envelope := 1 - float64(pos)/float64(total)
			v := chimeVolume * envelope * math.Sin(2*math.Pi*freq*t)
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}
		return n, true
	})
}

// Play starts the sound without waiting for it to finish.  The speaker is
// initialised on first use; if that fails the chime stays silent.
func (c *chimePlayer) Play() {
	c.speakerInitOnce.Do(func() {
		c.speakerInitErr = speaker.Init(chimeSampleRate, chimeSampleRate.N(time.Second/10))
		if c.speakerInitErr != nil {
			chatLog.Warnf("Failed to initialise speaker, chime disabled: %v",
				c.speakerInitErr)
		}
	})
	if c.speakerInitErr != nil {
		return
	}
	if !c.due(time.Now()) {
		return
	}
	speaker.Play(c.sound.Streamer(0, c.sound.Len()))
}

// due reports whether enough time has passed since the last sound.
func (c *chimePlayer) due(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastPlay) < chimeMinInterval {
		return false
	}
	c.lastPlay = now
	return true
}
