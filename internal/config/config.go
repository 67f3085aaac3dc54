package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCORMRTE_"

// Config is the full set of session settings.
type Config struct {
	Launch Launch      `json:"launch" yaml:"launch" envPrefix:"LAUNCH_"`
	Engine Engine      `json:"engine" yaml:"engine" envPrefix:"ENGINE_"`
	Store  StoreConfig `json:"store" yaml:"store" envPrefix:"STORE_"`
}

// Launch holds the LMS-provided values seeded into cmi.* at Initialize.
type Launch struct {
	Mode                string           `json:"mode,omitempty" yaml:"mode" env:"MODE" validate:"omitempty,oneof=normal browse review"`
	Credit              string           `json:"credit,omitempty" yaml:"credit" env:"CREDIT" validate:"omitempty,oneof=credit no-credit"`
	LearnerID           string           `json:"learner_id,omitempty" yaml:"learner_id" env:"LEARNER_ID" validate:"max=4000"`
	LearnerName         string           `json:"learner_name,omitempty" yaml:"learner_name" env:"LEARNER_NAME" validate:"max=250"`
	LaunchData          string           `json:"launch_data,omitempty" yaml:"launch_data" env:"DATA" validate:"max=4000"`
	ScaledPassingScore  string           `json:"scaled_passing_score,omitempty" yaml:"scaled_passing_score" env:"SCALED_PASSING_SCORE" validate:"omitempty,numeric"`
	CompletionThreshold string           `json:"completion_threshold,omitempty" yaml:"completion_threshold" env:"COMPLETION_THRESHOLD" validate:"omitempty,numeric"`
	MaxTimeAllowed      string           `json:"max_time_allowed,omitempty" yaml:"max_time_allowed" env:"MAX_TIME_ALLOWED"`
	TimeLimitAction     string           `json:"time_limit_action,omitempty" yaml:"time_limit_action" env:"TIME_LIMIT_ACTION"`
	CommentsFromLMS     []rte.LMSComment `json:"comments_from_lms,omitempty" yaml:"comments_from_lms" validate:"max=250"`
}

// Engine holds the engine behavior switches.
type Engine struct {
	StrictMode         bool     `json:"strict_mode" yaml:"strict_mode" env:"STRICT_MODE"`
	MaxCommitFrequency int      `json:"max_commit_frequency" yaml:"max_commit_frequency" env:"MAX_COMMIT_FREQUENCY" validate:"gte=1"`
	MemoryOnly         bool     `json:"memory_only" yaml:"memory_only" env:"MEMORY_ONLY"`
	BrowseTimeout      Duration `json:"browse_timeout" yaml:"browse_timeout" env:"BROWSE_TIMEOUT" validate:"gt=0"`
	LogLevel           string   `json:"log_level,omitempty" yaml:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
}

// SlogLevel maps LogLevel onto slog. Empty means info.
func (e Engine) SlogLevel() slog.Level {
	switch e.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StoreConfig locates the SQLite database. An empty path keeps everything
// in memory.
type StoreConfig struct {
	Path string `json:"path,omitempty" yaml:"path" env:"PATH"`
}

// Duration is a time.Duration written as "30m", "90s" and so on in
// files and environment variables.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Launch: Launch{Mode: rte.ModeNormal},
		Engine: Engine{
			MaxCommitFrequency: rte.DefaultMaxCommitFrequency,
			BrowseTimeout:      Duration{datamodel.DefaultBrowseTimeout},
		},
	}
}

// Load reads Default, overlays the file at path when path is non-empty,
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		return decodeCUE(path, data, cfg)
	case ".yaml", ".yml":
		return decodeYAML(path, data, cfg)
	default:
		return fmt.Errorf("config %s: unsupported extension %q (want .cue, .yaml or .yml)", path, ext)
	}
}

func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	merged := schema.Unify(value)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if err := merged.Decode(cfg); err != nil {
		return fmt.Errorf("config %s: decode: %w", path, err)
	}
	return nil
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config env: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(Duration); ok {
			return int64(d.Duration)
		}
		return nil
	}, Duration{})
	return v
}

// Validate checks field constraints. Data model constraints on launch
// values are checked again by rte.New.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LaunchValues converts the launch section for rte.WithLaunch.
func (c Config) LaunchValues() rte.Launch {
	l := rte.Launch{
		Mode:                c.Launch.Mode,
		Credit:              c.Launch.Credit,
		LaunchData:          c.Launch.LaunchData,
		ScaledPassingScore:  c.Launch.ScaledPassingScore,
		CompletionThreshold: c.Launch.CompletionThreshold,
		MaxTimeAllowed:      c.Launch.MaxTimeAllowed,
		TimeLimitAction:     c.Launch.TimeLimitAction,
		CommentsFromLMS:     c.Launch.CommentsFromLMS,
	}
	if c.Launch.LearnerID != "" || c.Launch.LearnerName != "" {
		l.Learner = &datamodel.LearnerInfo{ID: c.Launch.LearnerID, Name: c.Launch.LearnerName}
	}
	return l
}

// Options returns the rte options described by c. Collaborators (clock,
// registry, telemetry) are added by the caller.
func (c Config) Options() []rte.Option {
	return []rte.Option{
		rte.WithLaunch(c.LaunchValues()),
		rte.WithStrictMode(c.Engine.StrictMode),
		rte.WithMaxCommitFrequency(c.Engine.MaxCommitFrequency),
		rte.WithMemoryOnly(c.Engine.MemoryOnly),
		rte.WithBrowseTimeout(c.Engine.BrowseTimeout.Duration),
	}
}
