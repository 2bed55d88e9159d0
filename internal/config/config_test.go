package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrencyAndScannersAreClamped(t *testing.T) {
	opts, err := Parse([]string{"--input", t.TempDir(), "--concurrency", "999", "--scanners", "0"})
	require.NoError(t, err)
	require.Equal(t, 25, opts.Concurrency)
	require.Equal(t, 1, opts.Scanners)
}

func TestMissingInputIsAnError(t *testing.T) {
	_, err := Parse([]string{})
	require.Error(t, err)
}

func TestEncoderDefaultsApplyWithoutConfigFile(t *testing.T) {
	opts, err := Parse([]string{"--input", t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, 16000, opts.EncoderSettings.SampleRate)
	require.Equal(t, 1, opts.EncoderSettings.Channels)
	require.Equal(t, "32k", opts.EncoderSettings.Bitrate)
	require.Equal(t, "libmp3lame", opts.EncoderSettings.Codec)
}

func TestConfigFileOverridesBitrate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ffmpeg-processor.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("encoder:\n  bitrate: \"64k\"\n"), 0o644))

	opts, err := Parse([]string{"--input", dir, "--config", cfgPath})
	require.NoError(t, err)
	require.Equal(t, "64k", opts.EncoderSettings.Bitrate)
}

func TestConfigFileOverridesSampleRateAndBinaryPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ffmpeg-processor.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("encoder:\n  sample_rate: 44100\n  binary_path: /opt/custom-ffmpeg\n"), 0o644))

	opts, err := Parse([]string{"--input", dir, "--config", cfgPath})
	require.NoError(t, err)
	require.Equal(t, 44100, opts.EncoderSettings.SampleRate)
	require.Equal(t, "/opt/custom-ffmpeg", opts.EncoderSettings.BinaryPath)
}

func TestEnvOverridesSampleRate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FFPROC_ENCODER_SAMPLE_RATE", "48000")

	opts, err := Parse([]string{"--input", dir})
	require.NoError(t, err)
	require.Equal(t, 48000, opts.EncoderSettings.SampleRate)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ffmpeg-processor.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("encoder:\n  bitrate: \"64k\"\n"), 0o644))

	t.Setenv("FFPROC_ENCODER_BITRATE", "128k")
	opts, err := Parse([]string{"--input", dir, "--config", cfgPath})
	require.NoError(t, err)
	require.Equal(t, "128k", opts.EncoderSettings.Bitrate)
}

func TestCLIFlagWinsOverEverything(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FFPROC_ENCODER_BITRATE", "128k")
	t.Setenv("FFPROC_ENCODER_BINARY_PATH", "/env/ffmpeg")
	opts, err := Parse([]string{"--input", dir, "--encoder-binary", "/opt/ffmpeg"})
	require.NoError(t, err)
	require.Equal(t, "/opt/ffmpeg", opts.EncoderSettings.BinaryPath)
}
