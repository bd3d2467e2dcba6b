// Package trackio builds StemBuffers for the demo players: decoding stem
// WAV files and synthesizing test material. It lives outside the core;
// the engine itself never performs I/O.
package trackio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	wav "github.com/youpy/go-wav"

	"mesh-engine/internal/stems"
	"mesh-engine/internal/types"
)

// StemFileNames are the conventional file names inside a stem directory.
var StemFileNames = [types.NumStems]string{
	"vocals.wav", "drums.wav", "bass.wav", "other.wav",
}

// LoadStemDir reads the four stem WAVs from dir. All files must share the
// given sample rate; lengths may differ, and shorter stems are zero-padded
// to the longest.
func LoadStemDir(dir string, sampleRate int) (*stems.StemBuffers, error) {
	var bufs [types.NumStems]types.StereoBuffer
	longest := 0

	for i, name := range StemFileNames {
		buf, err := loadWAV(filepath.Join(dir, name), sampleRate)
		if err != nil {
			return nil, fmt.Errorf("stem %s: %w", name, err)
		}
		bufs[i] = buf
		if len(buf) > longest {
			longest = len(buf)
		}
	}

	for i := range bufs {
		if len(bufs[i]) < longest {
			padded := types.NewStereoBuffer(longest)
			copy(padded, bufs[i])
			bufs[i] = padded
		}
	}

	return stems.New(bufs, sampleRate)
}

// loadWAV decodes one stereo (or mono, duplicated) WAV file.
func loadWAV(path string, sampleRate int) (types.StereoBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, fmt.Errorf("read format: %w", err)
	}
	if int(format.SampleRate) != sampleRate {
		return nil, fmt.Errorf("sample rate %d, engine expects %d (no resampling)",
			format.SampleRate, sampleRate)
	}
	if format.NumChannels != 1 && format.NumChannels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", format.NumChannels)
	}

	var out types.StereoBuffer
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		for _, s := range samples {
			left := float32(r.FloatValue(s, 0))
			right := left
			if format.NumChannels == 2 {
				right = float32(r.FloatValue(s, 1))
			}
			out = append(out, types.StereoSample{Left: left, Right: right})
		}
	}
	return out, nil
}
