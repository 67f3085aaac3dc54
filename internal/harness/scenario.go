package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scormrte/internal/config"
	"github.com/roach88/scormrte/internal/errorstate"
	"github.com/roach88/scormrte/internal/rte"
)

// Scenario is a scripted SCO session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SessionID is the fixed id handed out at Initialize.
	// If empty, defaults to "test-session-default".
	SessionID string `yaml:"session_id,omitempty"`

	// Persist backs the engine with an in-memory store so commits produce
	// snapshots.
	Persist bool `yaml:"persist,omitempty"`

	Launch config.Launch `yaml:"launch,omitempty"`
	Engine config.Engine `yaml:"engine,omitempty"`

	// Restore seeds the data model before Initialize, in order. Collection
	// entries must be listed index by index.
	Restore []ElementValue `yaml:"restore,omitempty"`

	Steps []Step `yaml:"steps"`

	Final *FinalClause `yaml:"final,omitempty"`
}

// ElementValue is one data model element and its value.
type ElementValue struct {
	Element string `yaml:"element"`
	Value   string `yaml:"value"`
}

// Step is one API call or one clock advance.
type Step struct {
	Call string   `yaml:"call,omitempty"`
	Args []string `yaml:"args,omitempty"`

	// Expect is the expected return value. Nil skips the check.
	Expect *string `yaml:"expect,omitempty"`

	// Error is the expected error code after the call. Empty skips the check.
	Error string `yaml:"error,omitempty"`

	// Advance moves the fake clock, e.g. "90s" or "20m".
	Advance string `yaml:"advance,omitempty"`
}

// FinalClause checks the engine once every step has run.
type FinalClause struct {
	// State is not_initialized, running or terminated.
	State string `yaml:"state,omitempty"`

	// Values are compared against the stored data model, ignoring access
	// rules so write-only elements can be checked too.
	Values map[string]string `yaml:"values,omitempty"`
}

// arity is the number of arguments each API function takes.
var arity = map[string]int{
	rte.MethodInitialize:     1,
	rte.MethodTerminate:      1,
	rte.MethodCommit:         1,
	rte.MethodGetValue:       1,
	rte.MethodSetValue:       2,
	rte.MethodGetLastError:   0,
	rte.MethodGetErrorString: 1,
	rte.MethodGetDiagnostic:  1,
}

// LoadScenario loads a scenario from a YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and normalizes step arguments.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if err := s.config().Validate(); err != nil {
		return err
	}

	for i, r := range s.Restore {
		if r.Element == "" {
			return fmt.Errorf("restore[%d]: element is required", i)
		}
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}

	if s.Final != nil && s.Final.State != "" {
		switch s.Final.State {
		case errorstate.NotInitialized.String(), errorstate.Running.String(), errorstate.Terminated.String():
		default:
			return fmt.Errorf("final: unknown state %q", s.Final.State)
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	switch {
	case step.Call != "" && step.Advance != "":
		return fmt.Errorf("steps[%d]: call and advance are mutually exclusive", i)
	case step.Advance != "":
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return fmt.Errorf("steps[%d]: advance: %w", i, err)
		}
		if step.Args != nil || step.Expect != nil || step.Error != "" {
			return fmt.Errorf("steps[%d]: advance takes no args, expect or error", i)
		}
		return nil
	case step.Call == "":
		return fmt.Errorf("steps[%d]: call or advance is required", i)
	}

	n, ok := arity[step.Call]
	if !ok {
		return fmt.Errorf("steps[%d]: unknown API function %q", i, step.Call)
	}
	// The parameter of Initialize, Terminate and Commit may be omitted.
	if n == 1 && len(step.Args) == 0 && (step.Call == rte.MethodInitialize ||
		step.Call == rte.MethodTerminate || step.Call == rte.MethodCommit) {
		step.Args = []string{""}
	}
	if len(step.Args) != n {
		return fmt.Errorf("steps[%d]: %s takes %d argument(s), got %d", i, step.Call, n, len(step.Args))
	}
	if step.Error != "" {
		if _, ok := errorstate.ParseCode(step.Error); !ok {
			return fmt.Errorf("steps[%d]: unknown error code %q", i, step.Error)
		}
	}
	return nil
}

// config merges the scenario's launch and engine sections over defaults.
func (s *Scenario) config() config.Config {
	cfg := config.Default()
	cfg.Launch = s.Launch
	if cfg.Launch.Mode == "" {
		cfg.Launch.Mode = rte.ModeNormal
	}
	defaults := cfg.Engine
	cfg.Engine = s.Engine
	if cfg.Engine.MaxCommitFrequency == 0 {
		cfg.Engine.MaxCommitFrequency = defaults.MaxCommitFrequency
	}
	if cfg.Engine.BrowseTimeout.Duration == 0 {
		cfg.Engine.BrowseTimeout = defaults.BrowseTimeout
	}
	return cfg
}
