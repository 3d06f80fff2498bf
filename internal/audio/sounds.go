package audio

import (
	"math"
	"time"
)

// SampleRate is the fixed output rate for all synthesis and playback.
const SampleRate = 44100

// amplitude is the peak level of synthesized beeps.
const amplitude = 0.9

// Profile describes a beep cadence: a sine tone of Frequency held for Beep,
// followed by Silence, repeating for the requested duration.
type Profile struct {
	Name      string
	Frequency float64
	Beep      time.Duration
	Silence   time.Duration
}

// DefaultProfile is used when a record names an unknown sound.
const DefaultProfile = "Standard"

// Profiles is the registry of built-in sound profiles.
var Profiles = map[string]Profile{
	"Pulse":    {Name: "Pulse", Frequency: 880, Beep: 300 * time.Millisecond, Silence: 200 * time.Millisecond},
	"Anchor":   {Name: "Anchor", Frequency: 523.25, Beep: 500 * time.Millisecond, Silence: 300 * time.Millisecond},
	"Sparkle":  {Name: "Sparkle", Frequency: 1046.5, Beep: 150 * time.Millisecond, Silence: 350 * time.Millisecond},
	"Surge":    {Name: "Surge", Frequency: 659.25, Beep: 400 * time.Millisecond, Silence: 100 * time.Millisecond},
	"Standard": {Name: "Standard", Frequency: 440, Beep: 250 * time.Millisecond, Silence: 250 * time.Millisecond},
	"Soft":     {Name: "Soft", Frequency: 392, Beep: 600 * time.Millisecond, Silence: 800 * time.Millisecond},
}

// Lookup resolves a profile name, falling back to DefaultProfile for
// unknown names so a stale record can still ring.
func Lookup(name string) Profile {
	if p, ok := Profiles[name]; ok {
		return p
	}
	return Profiles[DefaultProfile]
}

// GeneratePCM synthesizes the profile's cadence as mono 16-bit signed
// little-endian PCM at 44100 Hz. The output is deterministic: identical
// inputs produce byte-identical buffers. Sample i at t = i/44100 is audible
// iff t mod (beep+silence) falls inside the beep window.
func GeneratePCM(p Profile, duration time.Duration) []byte {
	numSamples := int(math.Round(SampleRate * duration.Seconds()))
	cycle := p.Beep.Seconds() + p.Silence.Seconds()
	beep := p.Beep.Seconds()

	buf := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / SampleRate
		var sample int16
		if cycle <= 0 || math.Mod(t, cycle) < beep {
			sample = clamp16(math.Round(amplitude * math.Sin(2*math.Pi*p.Frequency*t) * 32767))
		}
		buf[i*2] = byte(sample)
		buf[i*2+1] = byte(sample >> 8)
	}
	return buf
}

// clamp16 clips a rounded sample value to the signed 16-bit range.
func clamp16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
