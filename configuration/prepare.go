package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type decodeFunc func(fname string, cfg *Configuration) error

// Supported formats by file extension
var decoders = map[string]decodeFunc{
	"json": decodeJSON,
	"toml": decodeTOML,
}

// PrepareConfiguration reads JSON or TOML file (picked by extension) and fills defaults
func PrepareConfiguration(confName string) (*Configuration, error) {
	if confName == "" {
		return nil, errors.New("Empty file name")
	}
	fileFormat := strings.ToLower(strings.TrimPrefix(filepath.Ext(confName), "."))
	decode, ok := decoders[fileFormat]
	if !ok {
		return nil, errors.Errorf("Not supported file format '%s'", fileFormat)
	}
	cfg := &Configuration{}
	if err := decode(confName, cfg); err != nil {
		return nil, err
	}
	postProcessDefaults(cfg)
	return cfg, nil
}

func decodeJSON(fname string, cfg *Configuration) error {
	configFile, err := os.ReadFile(fname)
	if err != nil {
		return errors.Wrapf(err, "Can't read '%s'", fname)
	}
	if err := json.Unmarshal(configFile, cfg); err != nil {
		return errors.Wrapf(err, "Can't parse JSON '%s'", fname)
	}
	return nil
}

// decodeTOML refuses unknown keys: a typo in TOML silently falls back to defaults otherwise
func decodeTOML(fname string, cfg *Configuration) error {
	meta, err := toml.DecodeFile(fname, cfg)
	if err != nil {
		return errors.Wrapf(err, "Can't parse TOML '%s'", fname)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("Unknown keys in '%s': %v", fname, undecoded)
	}
	return nil
}
