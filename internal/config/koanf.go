package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kennethjefferson/ffmpeg-processor/internal/encoder"
)

// encoderFile is the shape of the optional YAML config file (SPEC_FULL.md
// §3.1): a single "encoder:" block of defaults.
type encoderFile struct {
	Encoder encoder.Settings `koanf:"encoder"`
}

// LoadEncoderDefaults layers the built-in defaults, an optional YAML file,
// and FFPROC_ENCODER_* environment variables, in that order (each layer
// overrides the one before it). The CLI's own --encoder-binary flag, not
// handled here, has the final word (see Parse).
func LoadEncoderDefaults(path string) (encoder.Settings, error) {
	k := koanf.New(".")

	defaults := encoder.DefaultSettings()
	if err := k.Load(structProvider(defaults), nil); err != nil {
		return encoder.Settings{}, fmt.Errorf("load built-in defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return encoder.Settings{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return encoder.Settings{}, fmt.Errorf("load config file: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: "FFPROC_ENCODER_",
		TransformFunc: func(k, v string) (string, any) {
			// Prefix only filters which vars are captured; k is still the
			// full variable name, so strip it before building the key.
			k = strings.TrimPrefix(k, "FFPROC_ENCODER_")
			return "encoder." + toSnake(k), v
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return encoder.Settings{}, fmt.Errorf("load environment overrides: %w", err)
	}

	var wrapped encoderFile
	wrapped.Encoder = defaults
	err := k.UnmarshalWithConf("", &wrapped, koanf.UnmarshalConf{
		Tag:       "koanf",
		FlatPaths: false,
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &wrapped,
			WeaklyTypedInput: true,
			Metadata:         nil,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return encoder.Settings{}, fmt.Errorf("unmarshal encoder config: %w", err)
	}
	return wrapped.Encoder, nil
}

// structProvider adapts a Settings value into a koanf Provider so the
// built-in defaults live in the same layered map as the file/env overrides.
func structProvider(s encoder.Settings) koanfMapProvider {
	return koanfMapProvider{
		"encoder.binary_path": s.BinaryPath,
		"encoder.sample_rate": s.SampleRate,
		"encoder.channels":    s.Channels,
		"encoder.bitrate":     s.Bitrate,
		"encoder.codec":       s.Codec,
	}
}

type koanfMapProvider map[string]any

func (p koanfMapProvider) Read() (map[string]any, error) {
	return p, nil
}

func (p koanfMapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("koanfMapProvider does not support ReadBytes")
}

func toSnake(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out[i] = c
	}
	return string(out)
}
