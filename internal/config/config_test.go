package config

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
	"github.com/roach88/scormrte/internal/testutil"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, rte.ModeNormal, cfg.Launch.Mode)
	assert.Equal(t, rte.DefaultMaxCommitFrequency, cfg.Engine.MaxCommitFrequency)
	assert.Equal(t, 30*time.Minute, cfg.Engine.BrowseTimeout.Duration)
	assert.False(t, cfg.Engine.StrictMode)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_CUE(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "session.cue"))
	require.NoError(t, err)

	assert.Equal(t, "learner-42", cfg.Launch.LearnerID)
	assert.Equal(t, "Ada Lovelace", cfg.Launch.LearnerName)
	assert.Equal(t, "0.8", cfg.Launch.ScaledPassingScore)
	assert.Equal(t, "continue,no message", cfg.Launch.TimeLimitAction)
	require.Len(t, cfg.Launch.CommentsFromLMS, 1)
	assert.Equal(t, rte.LMSComment{Comment: "Welcome back", Location: "intro", Timestamp: "2024-01-01T09:00:00Z"},
		cfg.Launch.CommentsFromLMS[0])

	assert.True(t, cfg.Engine.StrictMode)
	assert.Equal(t, 5, cfg.Engine.MaxCommitFrequency)
	assert.Equal(t, 10*time.Minute, cfg.Engine.BrowseTimeout.Duration)
	assert.Equal(t, slog.LevelDebug, cfg.Engine.SlogLevel())
	assert.Equal(t, "rte.db", cfg.Store.Path)
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "session.yaml"))
	require.NoError(t, err)

	assert.Equal(t, rte.ModeBrowse, cfg.Launch.Mode)
	assert.Equal(t, "learner-7", cfg.Launch.LearnerID)
	assert.Equal(t, "0.75", cfg.Launch.CompletionThreshold)
	assert.True(t, cfg.Engine.MemoryOnly)
	assert.Equal(t, 45*time.Second, cfg.Engine.BrowseTimeout.Duration)
	assert.Equal(t, rte.DefaultMaxCommitFrequency, cfg.Engine.MaxCommitFrequency, "unset keys keep defaults")
}

func TestLoad_EmptyYAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "empty.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"cue vocabulary", "bad_mode.cue"},
		{"cue unknown key", "unknown_key.cue"},
		{"yaml unknown key", "unknown_key.yaml"},
		{"missing file", "nope.yaml"},
		{"unsupported extension", "session.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", tt.file))
			require.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCORMRTE_LAUNCH_MODE", "review")
	t.Setenv("SCORMRTE_LAUNCH_LEARNER_NAME", "Grace")
	t.Setenv("SCORMRTE_ENGINE_STRICT_MODE", "false")
	t.Setenv("SCORMRTE_ENGINE_BROWSE_TIMEOUT", "2m")
	t.Setenv("SCORMRTE_STORE_PATH", "/tmp/other.db")

	cfg, err := Load(filepath.Join("testdata", "session.cue"))
	require.NoError(t, err)

	assert.Equal(t, rte.ModeReview, cfg.Launch.Mode)
	assert.Equal(t, "Grace", cfg.Launch.LearnerName)
	assert.Equal(t, "learner-42", cfg.Launch.LearnerID, "file value survives")
	assert.False(t, cfg.Engine.StrictMode)
	assert.Equal(t, 2*time.Minute, cfg.Engine.BrowseTimeout.Duration)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
}

func TestLoad_EnvInvalid(t *testing.T) {
	t.Setenv("SCORMRTE_ENGINE_MAX_COMMIT_FREQUENCY", "often")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Launch.Mode = "preview" }},
		{"credit", func(c *Config) { c.Launch.Credit = "maybe" }},
		{"passing score", func(c *Config) { c.Launch.ScaledPassingScore = "high" }},
		{"commit frequency", func(c *Config) { c.Engine.MaxCommitFrequency = 0 }},
		{"browse timeout", func(c *Config) { c.Engine.BrowseTimeout = Duration{} }},
		{"log level", func(c *Config) { c.Engine.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestEngine_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Engine{}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Engine{LogLevel: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, Engine{LogLevel: "error"}.SlogLevel())
}

func TestLaunchValues(t *testing.T) {
	cfg := Default()
	assert.Nil(t, cfg.LaunchValues().Learner)

	cfg.Launch.LearnerID = "l1"
	cfg.Launch.LaunchData = "x"
	l := cfg.LaunchValues()
	assert.Equal(t, &datamodel.LearnerInfo{ID: "l1"}, l.Learner)
	assert.Equal(t, "x", l.LaunchData)
}

func TestOptions_BuildEngine(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "session.cue"))
	require.NoError(t, err)

	opts := append(cfg.Options(),
		rte.WithClock(testutil.NewFakeClock()),
		rte.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	e, err := rte.New(opts...)
	require.NoError(t, err)

	require.Equal(t, "true", e.Initialize(""))
	assert.Equal(t, "learner-42", e.GetValue("cmi.learner_id"))
	assert.Equal(t, "Ada Lovelace", e.GetValue("cmi.learner_name"))
	assert.Equal(t, "chapter=3", e.GetValue("cmi.launch_data"))
	assert.Equal(t, "0.8", e.GetValue("cmi.scaled_passing_score"))
	assert.Equal(t, "Welcome back", e.GetValue("cmi.comments_from_lms.0.comment"))
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1h30m")))
	assert.Equal(t, 90*time.Minute, d.Duration)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", string(text))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
