package binding

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/zoobzio/oxm"
)

// DefaultEncoding is the stream encoding used when none is configured.
const DefaultEncoding = "UTF-8"

// Config is the file and environment form of the marshaller settings.
//
// TargetType names a type in the marshaller's type registry, in the form
// printed by reflect.Type.String() or with its full import path.
type Config struct {
	Encoding              string   `mapstructure:"encoding"`
	MappingLocations      []string `mapstructure:"mapping_locations"`
	TargetType            string   `mapstructure:"target_type"`
	Validating            bool     `mapstructure:"validating"`
	WhitespacePreserve    bool     `mapstructure:"whitespace_preserve"`
	IgnoreExtraAttributes bool     `mapstructure:"ignore_extra_attributes"`
	IgnoreExtraElements   bool     `mapstructure:"ignore_extra_elements"`
}

// DefaultConfig returns the settings a marshaller starts with.
func DefaultConfig() Config {
	return Config{
		Encoding:              DefaultEncoding,
		IgnoreExtraAttributes: true,
	}
}

// LoadConfig reads settings from a YAML, JSON or TOML file, then applies
// OXM_-prefixed environment overrides (OXM_ENCODING, OXM_VALIDATING, ...).
// OXM_MAPPING_LOCATIONS takes a comma-separated list. An empty path reads
// the environment alone.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("encoding", def.Encoding)
	v.SetDefault("mapping_locations", []string{})
	v.SetDefault("target_type", "")
	v.SetDefault("validating", def.Validating)
	v.SetDefault("whitespace_preserve", def.WhitespacePreserve)
	v.SetDefault("ignore_extra_attributes", def.IgnoreExtraAttributes)
	v.SetDefault("ignore_extra_elements", def.IgnoreExtraElements)

	v.SetEnvPrefix("OXM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, oxm.NewConfigError("config", "read "+path+": "+err.Error())
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, oxm.NewConfigError("config", err.Error())
	}
	return cfg, nil
}
