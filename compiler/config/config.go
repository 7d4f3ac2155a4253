package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"
	"tlog.app/go/errors"
)

type (
	Config struct {
		Cache  Cache  `toml:"cache"`
		Inline Inline `toml:"inline"`
		Log    Log    `toml:"log"`

		// File the config was loaded from. Empty for defaults.
		File string `toml:"-"`
	}

	Cache struct {
		// Path to the bbolt database. Empty disables the persistent cache.
		Path        string `toml:"path"`
		MemEntries  int    `toml:"mem-entries"`
		Compression string `toml:"compression"`
	}

	Inline struct {
		MaxInstrs int `toml:"max-instrs"`
		MaxRounds int `toml:"max-rounds"`
	}

	Log struct {
		Verbosity string `toml:"verbosity"`
	}
)

const FileName = "dynir.toml"

func Default() *Config {
	return &Config{
		Cache: Cache{
			Path:        filepath.Join(".dynir", "cache.db"),
			MemEntries:  256,
			Compression: "default",
		},
		Inline: Inline{
			MaxInstrs: 64,
			MaxRounds: 4,
		},
	}
}

// Load overlays the file at path onto the defaults.
// A relative cache path is resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	c := Default()

	err = toml.Unmarshal(data, c)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", path)
	}

	c.File = path

	if c.Cache.Path != "" && !filepath.IsAbs(c.Cache.Path) {
		c.Cache.Path = filepath.Join(filepath.Dir(path), c.Cache.Path)
	}

	err = c.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}

	return c, nil
}

// FindAndLoad walks up from dir looking for dynir.toml.
// It returns the defaults if there is none.
func FindAndLoad(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "abs path")
	}

	for {
		path := filepath.Join(dir, FileName)

		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}

		dir = parent
	}
}

func (c *Config) Validate() error {
	if c.Cache.MemEntries < 0 {
		return errors.New("cache.mem-entries: negative: %d", c.Cache.MemEntries)
	}

	if _, _, err := c.Cache.Level(); err != nil {
		return errors.Wrap(err, "cache.compression")
	}

	if c.Inline.MaxInstrs < 0 {
		return errors.New("inline.max-instrs: negative: %d", c.Inline.MaxInstrs)
	}

	if c.Inline.MaxRounds < 0 {
		return errors.New("inline.max-rounds: negative: %d", c.Inline.MaxRounds)
	}

	return nil
}

// Level maps the compression setting to a zstd level.
// ok is false if values are stored uncompressed.
func (c Cache) Level() (l zstd.EncoderLevel, ok bool, err error) {
	switch c.Compression {
	case "none", "off":
		return 0, false, nil
	case "":
		return zstd.SpeedDefault, true, nil
	}

	ok, l = zstd.EncoderLevelFromString(c.Compression)
	if !ok {
		return 0, false, errors.New("unknown level: %q", c.Compression)
	}

	return l, true, nil
}
