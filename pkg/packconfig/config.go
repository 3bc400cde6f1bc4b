package packconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the one tunable spec.md §9's open questions leaves for an
// implementation to expose: the index size bound WritePack passes to
// object.NewDeltaIndexWithLimit. The other named constants in spec.md
// (MAX_DELTA_CHAIN_DEPTH, MIN_SIZE_FOR_DELTA, W) are fixed by the format
// itself, not a deployment-time choice, so they stay as pkg/object
// constants rather than configuration fields.
type Config struct {
	MaxIndexBytes int `toml:"max_index_bytes"`
}

// Default returns the tunable at the value spec.md §4.2 and §9 specify.
func Default() Config {
	return Config{MaxIndexBytes: 100 << 20}
}

// Load reads a TOML config file at path, filling any field left at its
// zero value with Default's value. A missing file returns Default
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var onDisk Config
	if err := toml.Unmarshal(data, &onDisk); err != nil {
		return Config{}, fmt.Errorf("read config: unmarshal: %w", err)
	}

	if onDisk.MaxIndexBytes > 0 {
		cfg.MaxIndexBytes = onDisk.MaxIndexBytes
	}
	return cfg, nil
}

// Write atomically writes cfg to path as TOML, mirroring a
// temp-file-then-rename save so a crash mid-write never corrupts the
// existing file.
func Write(path string, cfg Config) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".packconfig-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}
