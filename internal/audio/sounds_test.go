package audio

import (
	"bytes"
	"math"
	"testing"
	"time"
)

func TestProfilesRegistryComplete(t *testing.T) {
	expected := []string{"Pulse", "Anchor", "Sparkle", "Surge", "Standard", "Soft"}
	for _, name := range expected {
		p, ok := Profiles[name]
		if !ok {
			t.Errorf("missing profile %q in registry", name)
			continue
		}
		if p.Name != name {
			t.Errorf("profile %q has Name %q", name, p.Name)
		}
		if p.Frequency <= 0 || p.Beep <= 0 || p.Silence <= 0 {
			t.Errorf("profile %q has degenerate cadence %+v", name, p)
		}
	}
}

func TestLookupFallsBack(t *testing.T) {
	if got := Lookup("no-such-sound"); got.Name != DefaultProfile {
		t.Errorf("Lookup(unknown) = %q, want %q", got.Name, DefaultProfile)
	}
	if got := Lookup("Pulse"); got.Name != "Pulse" {
		t.Errorf("Lookup(Pulse) = %q", got.Name)
	}
}

func TestGeneratePCMLength(t *testing.T) {
	pcm := GeneratePCM(Profiles["Standard"], time.Second)
	// round(44100 * 1.0) samples, 2 bytes each (mono 16-bit)
	if want := SampleRate * 2; len(pcm) != want {
		t.Errorf("len(pcm) = %d, want %d", len(pcm), want)
	}

	pcm = GeneratePCM(Profiles["Standard"], 250*time.Millisecond)
	if want := SampleRate / 4 * 2; len(pcm) != want {
		t.Errorf("len(pcm) for 0.25s = %d, want %d", len(pcm), want)
	}
}

func TestGeneratePCMDeterministic(t *testing.T) {
	a := GeneratePCM(Profiles["Sparkle"], 2*time.Second)
	b := GeneratePCM(Profiles["Sparkle"], 2*time.Second)
	if !bytes.Equal(a, b) {
		t.Fatal("two invocations with identical inputs differ")
	}
}

func sampleAt(pcm []byte, i int) int16 {
	return int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
}

func TestGeneratePCMCadence(t *testing.T) {
	// Standard: 0.25s beep, 0.25s silence. All samples in the silence half
	// of each cycle must be zero; the beep half must contain sound.
	p := Profiles["Standard"]
	pcm := GeneratePCM(p, time.Second)
	numSamples := len(pcm) / 2

	cycle := (p.Beep + p.Silence).Seconds()
	beep := p.Beep.Seconds()
	loud := 0
	for i := 0; i < numSamples; i++ {
		t64 := float64(i) / SampleRate
		s := sampleAt(pcm, i)
		if math.Mod(t64, cycle) >= beep {
			if s != 0 {
				t.Fatalf("sample %d (t=%.4f) in silence window is %d", i, t64, s)
			}
		} else if s != 0 {
			loud++
		}
	}
	if loud == 0 {
		t.Fatal("beep window produced no audible samples")
	}
}

func TestGeneratePCMAmplitudeBounded(t *testing.T) {
	pcm := GeneratePCM(Profiles["Pulse"], time.Second)
	peak := int16(0)
	for i := 0; i < len(pcm)/2; i++ {
		s := sampleAt(pcm, i)
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	limit := int16(math.Round(amplitude * 32767))
	if peak > limit {
		t.Errorf("peak sample %d exceeds amplitude limit %d", peak, limit)
	}
	if peak < limit/2 {
		t.Errorf("peak sample %d suspiciously quiet (limit %d)", peak, limit)
	}
}

func TestGeneratePCMSampleFormula(t *testing.T) {
	// Spot-check the first few samples against the defining formula.
	p := Profiles["Surge"]
	pcm := GeneratePCM(p, 100*time.Millisecond)
	for i := 0; i < 100; i++ {
		t64 := float64(i) / SampleRate
		want := int16(math.Round(amplitude * math.Sin(2*math.Pi*p.Frequency*t64) * 32767))
		if got := sampleAt(pcm, i); got != want {
			t.Fatalf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestApplyVolume16(t *testing.T) {
	// sample = 16384 (0x4000), half = 8192
	data := []byte{0x00, 0x40}
	applyVolume16(data, 0.5)
	if got := int16(data[0]) | int16(data[1])<<8; got != 8192 {
		t.Errorf("half volume sample = %d, want 8192", got)
	}

	data = []byte{0x00, 0x40}
	applyVolume16(data, 0.0)
	if got := int16(data[0]) | int16(data[1])<<8; got != 0 {
		t.Errorf("zero volume sample = %d, want 0", got)
	}
}
