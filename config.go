package auth

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// MinSigningKeyLength is the shortest accepted HMAC signing key.
const MinSigningKeyLength = 32

// Config holds auth options
type Config struct {
	SigningKey         string        `koanf:"signing_key" json:"signing_key"`
	Issuer             string        `koanf:"issuer" json:"issuer"`
	TokenTTL           time.Duration `koanf:"token_ttl" json:"token_ttl"`
	HashCost           int           `koanf:"hash_cost" json:"hash_cost"`
	ResetTokenTTL      time.Duration `koanf:"reset_token_ttl" json:"reset_token_ttl"`
	PasswordChangeSkew time.Duration `koanf:"password_change_skew" json:"password_change_skew"`
	ResetURLBase       string        `koanf:"reset_url_base" json:"reset_url_base"`
	MinPasswordLength  int           `koanf:"min_password_length" json:"min_password_length"`

	DatabaseDSN string `koanf:"database_dsn" json:"database_dsn"`
	ListenAddr  string `koanf:"listen_addr" json:"listen_addr"`
	LogFormat   string `koanf:"log_format" json:"log_format"`
	LogLevel    string `koanf:"log_level" json:"log_level"`
}

// DefaultConfig returns a Config with every optional field filled in.
// SigningKey is left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		Issuer:             "natours",
		TokenTTL:           DefaultTokenTTL,
		HashCost:           DefaultHashCost,
		ResetTokenTTL:      DefaultResetTokenTTL,
		PasswordChangeSkew: DefaultPasswordChangeSkew,
		ResetURLBase:       "http://localhost:3000/api/v1/users/resetPassword",
		MinPasswordLength:  8,
		DatabaseDSN:        "file:natours.db?cache=shared",
		ListenAddr:         ":3000",
		LogFormat:          "json",
		LogLevel:           "info",
	}
}

// Validate checks the configuration before any component is built.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey,
			validation.Required,
			validation.Length(MinSigningKeyLength, 0),
		),
		validation.Field(&c.TokenTTL, validation.By(positiveDuration)),
		validation.Field(&c.ResetTokenTTL, validation.By(positiveDuration)),
		validation.Field(&c.PasswordChangeSkew, validation.By(nonNegativeDuration)),
		validation.Field(&c.HashCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&c.MinPasswordLength, validation.Required, validation.Min(1)),
		validation.Field(&c.ResetURLBase, validation.Required, is.URL),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
	)
	if err != nil {
		return oops.Code(textCodeInvalidConfig).Wrap(NewValidationError(err))
	}
	return nil
}

// LoadConfig layers DefaultConfig, an optional YAML file at path and any
// flags explicitly set on flags. Flag names use dashes where config keys use
// underscores.
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.Code(textCodeInvalidConfig).With("path", path).Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return cfg, oops.Code(textCodeInvalidConfig).Wrapf(err, "load config flags")
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.Code(textCodeInvalidConfig).Wrapf(err, "decode config")
	}
	return cfg, nil
}

func positiveDuration(value interface{}) error {
	d, _ := value.(time.Duration)
	if d <= 0 {
		return errors.New("must be a positive duration")
	}
	return nil
}

func nonNegativeDuration(value interface{}) error {
	d, _ := value.(time.Duration)
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
