package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// maxWAVSize is the maximum WAV file size we'll load (50 MB).
const maxWAVSize = 50 * 1024 * 1024

const wavHeaderSize = 44

// EncodeWAV wraps mono 16-bit 44100 Hz PCM in a standard RIFF/WAVE
// container: a 44-byte header (fmt chunk declaring 1 channel, 16-bit,
// 44100 Hz) followed by the data chunk, all little-endian.
func EncodeWAV(pcm []byte) []byte {
	dataSize := len(pcm)
	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:28], SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], SampleRate*2) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)            // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)           // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// LoadWAV reads a WAV file and returns raw mono 16-bit signed LE PCM at
// 44100 Hz, the format the playback sink consumes. Supports PCM format
// (format code 1) with 8-bit, 16-bit, or 24-bit samples, mono or stereo;
// stereo is downmixed and other sample rates are resampled via linear
// interpolation.
func LoadWAV(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return DecodeWAV(data)
}

// DecodeWAV converts an in-memory WAV byte stream to mono 16-bit 44100 Hz PCM.
func DecodeWAV(data []byte) ([]byte, error) {
	if len(data) > maxWAVSize {
		return nil, fmt.Errorf("wav: file too large (%d bytes, max %d)", len(data), maxWAVSize)
	}
	if len(data) < wavHeaderSize {
		return nil, fmt.Errorf("wav: file too short")
	}

	// RIFF header
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a WAV file")
	}

	// Find fmt chunk
	fmtOff, fmtSize, err := findChunk(data, "fmt ")
	if err != nil {
		return nil, err
	}
	if fmtSize < 16 {
		return nil, fmt.Errorf("wav: fmt chunk too short")
	}

	format := binary.LittleEndian.Uint16(data[fmtOff : fmtOff+2])
	if format != 1 {
		return nil, fmt.Errorf("wav: unsupported format %d (only PCM supported)", format)
	}
	channels := binary.LittleEndian.Uint16(data[fmtOff+2 : fmtOff+4])
	sampleRate := binary.LittleEndian.Uint32(data[fmtOff+4 : fmtOff+8])
	bitsPerSample := binary.LittleEndian.Uint16(data[fmtOff+14 : fmtOff+16])

	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("wav: unsupported channel count %d", channels)
	}
	if bitsPerSample != 8 && bitsPerSample != 16 && bitsPerSample != 24 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d", bitsPerSample)
	}

	// Find data chunk
	dataOff, dataSize, err := findChunk(data, "data")
	if err != nil {
		return nil, err
	}
	if dataOff+dataSize > len(data) {
		dataSize = len(data) - dataOff
	}

	raw := data[dataOff : dataOff+dataSize]

	bytesPerSample := int(bitsPerSample) / 8
	frameSize := bytesPerSample * int(channels)
	if frameSize == 0 {
		return nil, fmt.Errorf("wav: invalid frame size")
	}
	numFrames := len(raw) / frameSize
	if numFrames == 0 {
		return nil, fmt.Errorf("wav: no audio data")
	}

	// Decode all frames to mono float64 samples; stereo is averaged.
	samples := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		off := i * frameSize
		s := decodeSample(raw, off, bitsPerSample)
		if channels == 2 {
			s = (s + decodeSample(raw, off+bytesPerSample, bitsPerSample)) / 2
		}
		samples[i] = s
	}

	if sampleRate != SampleRate {
		samples = resampleLinear(samples, int(sampleRate), SampleRate)
		numFrames = len(samples)
	}

	pcm := make([]byte, numFrames*2)
	for i, s := range samples {
		v := clampUnit16(s)
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}

	return pcm, nil
}

// findChunk locates a RIFF chunk by its 4-byte ID and returns (dataOffset, dataSize).
func findChunk(data []byte, id string) (int, int, error) {
	off := 12 // skip RIFF header
	for off+8 <= len(data) {
		chunkID := string(data[off : off+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if chunkID == id {
			return off + 8, chunkSize, nil
		}
		// Advance to next chunk (chunks are word-aligned)
		off += 8 + chunkSize
		if off%2 != 0 {
			off++
		}
	}
	return 0, 0, fmt.Errorf("wav: %q chunk not found", id)
}

// decodeSample reads one sample at the given byte offset and returns it as float64 in [-1, 1].
func decodeSample(data []byte, off int, bitsPerSample uint16) float64 {
	switch bitsPerSample {
	case 8:
		// 8-bit WAV is unsigned (0-255, 128 = silence)
		return (float64(data[off]) - 128.0) / 128.0
	case 16:
		// 16-bit WAV is signed little-endian
		s := int16(data[off]) | int16(data[off+1])<<8
		return float64(s) / 32768.0
	case 24:
		// 24-bit WAV is signed little-endian
		val := int(data[off]) | int(data[off+1])<<8 | int(data[off+2])<<16
		if val >= 1<<23 {
			val -= 1 << 24
		}
		return float64(val) / 8388608.0
	}
	return 0
}

// resampleLinear resamples mono float64 samples from srcRate to dstRate
// using linear interpolation.
func resampleLinear(samples []float64, srcRate, dstRate int) []float64 {
	srcFrames := len(samples)
	ratio := float64(srcRate) / float64(dstRate)
	dstFrames := int(math.Ceil(float64(srcFrames) / ratio))
	out := make([]float64, dstFrames)

	for i := 0; i < dstFrames; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		if idx+1 < srcFrames {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else if idx < srcFrames {
			out[i] = samples[idx]
		}
	}

	return out
}

// clampUnit16 converts a float64 in [-1, 1] to int16, clamping to avoid overflow.
func clampUnit16(f float64) int16 {
	s := f * 32767.0
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}
