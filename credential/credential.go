package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/furiosa-ai/furiosa-client/errs"
)

// Environment variables read by [Resolve].
const (
	EnvAccessKeyID     = "FURIOSA_ACCESS_KEY_ID"
	EnvSecretAccessKey = "FURIOSA_SECRET_ACCESS_KEY"
	EnvEndpoint        = "FURIOSA_API_ENDPOINT"
	EnvPollInterval    = "FURIOSA_POLL_INTERVAL"
	EnvPollTimeout     = "FURIOSA_POLL_TIMEOUT"
)

// Defaults applied when neither the environment nor a dotfile sets a value.
const (
	DefaultEndpoint     = "https://api.furiosa.ai"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPollTimeout  = time.Hour
)

// Dotfile names under the $HOME/.furiosa directory.
const (
	ConfigFile     = "config"
	CredentialFile = "credential"
)

// Settings is the resolved client configuration.
type Settings struct {
	AccessKeyID     string        `env:"FURIOSA_ACCESS_KEY_ID" validate:"required"`
	SecretAccessKey string        `env:"FURIOSA_SECRET_ACCESS_KEY" validate:"required"`
	Endpoint        string        `env:"FURIOSA_API_ENDPOINT" validate:"required,url"`
	PollInterval    time.Duration `env:"FURIOSA_POLL_INTERVAL" validate:"gt=0"`
	// PollTimeout of zero means poll indefinitely.
	PollTimeout time.Duration `env:"FURIOSA_POLL_TIMEOUT" validate:"gte=0"`
}

// LogValue implements slog.LogValuer and keeps the secret out of logs.
func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key_id", s.AccessKeyID),
		slog.String("endpoint", s.Endpoint),
		slog.Duration("poll_interval", s.PollInterval),
		slog.Duration("poll_timeout", s.PollTimeout),
	)
}

// Option configures [Resolve].
type Option func(*options) error

type options struct {
	homeDir         *string
	logger          *slog.Logger
	accessKeyID     string
	secretAccessKey string
}

// WithKeys supplies the access key pair directly. The credential dotfile
// is then skipped, while the config dotfile and the other variables
// are still read.
func WithKeys(accessKeyID, secretAccessKey string) Option {
	return func(o *options) error {
		if accessKeyID == "" || secretAccessKey == "" {
			return errors.New("access key id and secret access key must not be empty")
		}
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
		return nil
	}
}

// WithHomeDir sets the directory holding .furiosa. An empty dir disables
// dotfile loading. Defaults to os.UserHomeDir.
func WithHomeDir(dir string) Option {
	return func(o *options) error {
		o.homeDir = &dir
		return nil
	}
}

// WithLogger sets the logger reporting which dotfiles were loaded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// Resolve reads the settings from the environment and the optional
// dotfiles. It fails with an errs.KindNoCredentials error when either key
// is still unset after the dotfiles were consulted.
func Resolve(optFns ...Option) (Settings, error) {
	opts := options{logger: slog.Default()}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return Settings{}, errs.Wrap(errs.KindInvalidArgument, "applying credential option", err)
		}
	}

	dir := ""
	if opts.homeDir != nil {
		dir = *opts.homeDir
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = home
	}

	v := viper.New()
	v.SetDefault(EnvEndpoint, DefaultEndpoint)
	v.SetDefault(EnvPollInterval, DefaultPollInterval.String())
	v.SetDefault(EnvPollTimeout, DefaultPollTimeout.String())
	v.AutomaticEnv()
	if opts.accessKeyID != "" {
		v.Set(EnvAccessKeyID, opts.accessKeyID)
		v.Set(EnvSecretAccessKey, opts.secretAccessKey)
	}

	load := func(name string) error {
		if dir == "" {
			return nil
		}
		path := filepath.Join(dir, ".furiosa", name)
		vals, err := readDotfile(path)
		if err != nil {
			return err
		}
		if vals == nil {
			return nil
		}
		for k, val := range vals {
			// Defaults rank below the environment in viper.
			v.SetDefault(k, val)
		}
		opts.logger.Debug("loaded dotfile", "path", path, "keys", len(vals))
		return nil
	}

	if err := load(ConfigFile); err != nil {
		return Settings{}, err
	}
	if !hasKeys(v) {
		if err := load(CredentialFile); err != nil {
			return Settings{}, err
		}
	}
	if !hasKeys(v) {
		return Settings{}, errs.NoCredentials()
	}

	s := Settings{
		AccessKeyID:     v.GetString(EnvAccessKeyID),
		SecretAccessKey: v.GetString(EnvSecretAccessKey),
		Endpoint:        NormalizeEndpoint(v.GetString(EnvEndpoint)),
	}

	var err error
	if s.PollInterval, err = parseDuration(EnvPollInterval, v.GetString(EnvPollInterval)); err != nil {
		return Settings{}, err
	}
	if s.PollTimeout, err = parseDuration(EnvPollTimeout, v.GetString(EnvPollTimeout)); err != nil {
		return Settings{}, err
	}

	if err := Validate(s); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// NormalizeEndpoint strips every trailing slash from endpoint.
func NormalizeEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

func hasKeys(v *viper.Viper) bool {
	return v.GetString(EnvAccessKeyID) != "" && v.GetString(EnvSecretAccessKey) != ""
}

func parseDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, &errs.Error{
			Kind:    errs.KindEnvVar,
			Var:     name,
			Message: fmt.Sprintf("invalid duration %q", raw),
			Err:     err,
		}
	}
	return d, nil
}

// readDotfile parses path. A missing file yields nil values and no error.
func readDotfile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindIO, Path: path, Message: "reading dotfile", Err: err}
	}

	vals, err := godotenv.Unmarshal(string(b))
	if err != nil {
		return nil, &errs.Error{
			Kind:    errs.KindConfigParse,
			Path:    path,
			Line:    badLine(string(b)),
			Message: err.Error(),
			Err:     err,
		}
	}

	return vals, nil
}

// badLine returns the 1-based index of the first line godotenv rejects
// on its own, or 0 when the error only shows up across lines.
func badLine(src string) int {
	for i, line := range strings.Split(src, "\n") {
		if _, err := godotenv.Unmarshal(line); err != nil {
			return i + 1
		}
	}
	return 0
}
