package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
)

func getContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-readyChan
		}
	})
	return otoCtx, otoInitErr
}

// Player plays mono 16-bit 44100 Hz PCM through the shared audio device.
// It is an exclusively-owned resource: at most one buffer plays at a time,
// and a new Play replaces whatever was playing before (last writer wins).
type Player struct {
	mu       sync.Mutex
	stopChan chan struct{}
	volume   float64
}

// NewPlayer returns a Player scaling output by volume (0.0 silent to 1.0 full).
func NewPlayer(volume float64) *Player {
	if volume < 0 || volume > 1 {
		volume = 1
	}
	return &Player{volume: volume}
}

// Play starts playback of pcm, stopping any previous playback first.
// With loop set, the buffer repeats until Stop is called; otherwise it
// plays once. Play returns as soon as playback is started.
func (p *Player) Play(pcm []byte, loop bool) error {
	ctx, err := getContext()
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if len(pcm) == 0 {
		return fmt.Errorf("audio: empty buffer")
	}

	if p.volume < 1 {
		scaled := make([]byte, len(pcm))
		copy(scaled, pcm)
		applyVolume16(scaled, p.volume)
		pcm = scaled
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	stop := make(chan struct{})
	p.stopChan = stop
	go playLoop(ctx, pcm, loop, stop)
	return nil
}

// Stop halts playback and releases the device claim. Stopping an idle
// player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.stopChan != nil {
		close(p.stopChan)
		p.stopChan = nil
	}
}

// playLoop drives one oto player per pass over the buffer until the stop
// channel closes or, for non-looping playback, the buffer ends.
func playLoop(ctx *oto.Context, pcm []byte, loop bool, stop <-chan struct{}) {
	for {
		player := ctx.NewPlayer(bytes.NewReader(pcm))
		player.Play()

		for player.IsPlaying() {
			select {
			case <-stop:
				player.Pause()
				player.Close()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		player.Close()

		if !loop {
			return
		}
		select {
		case <-stop:
			return
		default:
		}
	}
}

// applyVolume16 scales 16-bit signed little-endian PCM samples in place.
func applyVolume16(data []byte, volume float64) {
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		sample = int16(float64(sample) * volume)
		data[i] = byte(sample)
		data[i+1] = byte(sample >> 8)
	}
}
