package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"backend: portaudio\nblock_frames: 512\nscratch_interpolation: cubic\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "portaudio", cfg.Backend)
	assert.Equal(t, 512, cfg.BlockFrames)
	assert.True(t, cfg.ScratchCubic())
	// Untouched fields keep defaults.
	assert.Equal(t, Default().SampleRate, cfg.SampleRate)
}

func TestValidation(t *testing.T) {
	cases := []string{
		"backend: jack\n",
		"block_frames: 3\n",
		"sample_rate: 100\n",
		"scratch_interpolation: sinc\n",
		"slicer_buffer_bars: 0\n",
	}
	for _, body := range cases {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path)
		assert.Error(t, err, "config %q should fail validation", body)
	}
}
