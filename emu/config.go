package emu

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/binaryfields/zinc64/hw/hwdefs"
	"github.com/binaryfields/zinc64/loader"
)

type Config struct {
	Model ModelConfig `toml:"model"`
	ROM   ROMConfig   `toml:"rom"`
	Audio AudioConfig `toml:"audio"`
}

type ModelConfig struct {
	// "pal" (6569) or "ntsc" (6567).
	Standard string `toml:"standard"`
}

type ROMConfig struct {
	Basic   string `toml:"basic"`
	Kernal  string `toml:"kernal"`
	Chargen string `toml:"chargen"`
}

type AudioConfig struct {
	SampleRate int `toml:"sample_rate"`
	// Ring capacity in samples, rounded up to a power of two.
	BufferSize int `toml:"buffer_size"`
}

const cfgFilename = "zinc64.toml"

func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{Standard: "pal"},
		ROM: ROMConfig{
			Basic:   "rom/basic.rom",
			Kernal:  "rom/kernal.rom",
			Chargen: "rom/chargen.rom",
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			BufferSize: 8192,
		},
	}
}

// LoadConfigOrDefault reads zinc64.toml from the given directory, falling
// back to defaults when absent.
func LoadConfigOrDefault(dir string) Config {
	var cfg Config
	_, err := toml.DecodeFile(filepath.Join(dir, cfgFilename), &cfg)
	if err != nil {
		return DefaultConfig()
	}
	cfg.applyDefaults()
	return cfg
}

func SaveConfig(dir string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cfgFilename), buf, 0644)
}

func (cfg *Config) applyDefaults() {
	def := DefaultConfig()
	if cfg.Model.Standard == "" {
		cfg.Model.Standard = def.Model.Standard
	}
	if cfg.ROM.Basic == "" {
		cfg.ROM = def.ROM
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = def.Audio.SampleRate
	}
	if cfg.Audio.BufferSize == 0 {
		cfg.Audio.BufferSize = def.Audio.BufferSize
	}
}

// VideoStandard resolves the configured video standard.
func (cfg *Config) VideoStandard() (hwdefs.VideoStandard, error) {
	switch cfg.Model.Standard {
	case "", "pal":
		return hwdefs.PAL, nil
	case "ntsc":
		return hwdefs.NTSC, nil
	default:
		return hwdefs.PAL, fmt.Errorf("%w: unknown model %q", loader.ErrConfig, cfg.Model.Standard)
	}
}
