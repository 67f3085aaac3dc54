package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/scormrte/internal/config"
	"github.com/roach88/scormrte/internal/rte"
	"github.com/roach88/scormrte/internal/store"
	"github.com/roach88/scormrte/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	Resume   bool
	Metrics  bool

	// SessionIDs allows overriding the session id generator (for testing).
	// If nil, the engine default (UUIDv7) is used.
	SessionIDs rte.SessionIDGenerator
}

// CallRecord is one executed script line.
type CallRecord struct {
	Line   int      `json:"line"`
	Method string   `json:"method"`
	Args   []string `json:"args"`
	Result string   `json:"result"`
	Error  string   `json:"error"`
}

// MetricSample is one counter or histogram count from the run.
type MetricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Resumed   bool           `json:"resumed"`
	Calls     []CallRecord   `json:"calls"`
	Metrics   []MetricSample `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script|->",
		Short: "Drive one session from a script of API calls",
		Long: `Drive one SCORM session from a script of API calls.

Each non-empty line of the script is a JSON array naming the API function
followed by its arguments. Lines starting with # are comments.

  ["Initialize", ""]
  ["SetValue", "cmi.location", "page 3"]
  ["GetValue", "cmi.location"]
  ["Terminate", ""]

Use - to read the script from stdin.

Exit codes:
  0 - Every call succeeded
  1 - At least one call left a non-zero error code
  2 - Command error (bad config, unreadable script, database error)

Examples:
  scormrte run session.jsonl
  scormrte run --config launch.cue --db rte.db --resume session.jsonl
  cat session.jsonl | scormrte run --format json --metrics -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "launch/engine config file (.cue, .yaml)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "restore the learner's latest snapshot before Initialize")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report Prometheus counters after the run")

	return cmd
}

type scriptLine struct {
	line int
	call []string
}

func runSession(opts *RunOptions, scriptPath string, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	logger := newLogger(opts.RootOptions, cfg.Engine.SlogLevel(), cmd.ErrOrStderr())

	script, err := readScript(scriptPath, cmd.InOrStdin())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeScript, "failed to read script", err)
	}

	engineOpts := append(cfg.Options(), rte.WithLogger(logger), rte.WithContext(ctx))
	if opts.SessionIDs != nil {
		engineOpts = append(engineOpts, rte.WithSessionIDs(opts.SessionIDs))
	}

	reg := prometheus.NewRegistry()
	sinks := []rte.TelemetrySink{telemetry.NewMetrics(reg)}

	var st *store.Store
	if cfg.Store.Path != "" {
		var storeOpts []store.Option
		if l := cfg.LaunchValues().Learner; l != nil {
			storeOpts = append(storeOpts, store.WithLearner(*l))
		}
		st, err = store.Open(cfg.Store.Path, storeOpts...)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer st.Close()
		sinks = append(sinks, st)
		engineOpts = append(engineOpts, rte.WithRegistry(st))
	}
	engineOpts = append(engineOpts, rte.WithTelemetry(telemetry.NewFanout(sinks...)))

	eng, err := rte.New(engineOpts...)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid launch configuration", err)
	}

	resumed, err := resume(ctx, opts, out, cfg, st, eng, logger)
	if err != nil {
		return err
	}

	result := RunResult{Resumed: resumed, Calls: make([]CallRecord, 0, len(script))}
	failed := 0
	for _, sl := range script {
		rec := CallRecord{Line: sl.line, Method: sl.call[0], Args: sl.call[1:]}
		rec.Result = invoke(eng, rec.Method, rec.Args)
		rec.Error = eng.LastError().String()
		if rec.Error != "0" && !errorQuery[rec.Method] {
			failed++
		}
		result.Calls = append(result.Calls, rec)
	}
	result.SessionID = eng.SessionID()
	result.State = eng.State().String()

	if opts.Metrics {
		samples, err := gatherMetrics(reg)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to gather metrics", err)
		}
		result.Metrics = samples
	}

	if out.JSON() {
		if err := out.Success(result); err != nil {
			return err
		}
	} else {
		printRunResult(cmd.OutOrStdout(), result)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d call(s) reported an error", failed))
	}
	return nil
}

// resume restores the learner's latest snapshot when --resume is set.
func resume(ctx context.Context, opts *RunOptions, out *OutputFormatter, cfg config.Config, st *store.Store, eng *rte.Engine, logger *slog.Logger) (bool, error) {
	if !opts.Resume {
		return false, nil
	}
	if st == nil {
		return false, out.Fail(ExitCommandError, ErrCodeConfig, "--resume requires --db or store.path", nil)
	}
	learnerID := cfg.Launch.LearnerID
	if learnerID == "" {
		return false, out.Fail(ExitCommandError, ErrCodeConfig, "--resume requires launch.learner_id", nil)
	}

	snap, found, err := st.LatestSnapshot(ctx, learnerID)
	if err != nil {
		return false, out.Fail(ExitCommandError, ErrCodeStore, "failed to read snapshot", err)
	}
	if !found {
		logger.Info("no snapshot to resume, starting a new attempt", "learner_id", learnerID)
		return false, nil
	}
	if err := eng.Restore(snap.Data); err != nil {
		return false, out.Fail(ExitCommandError, ErrCodeStore, "failed to restore snapshot", err)
	}
	logger.Info("resuming attempt", "learner_id", learnerID, "from_session", snap.SessionID)
	return true, nil
}

// readScript parses a JSON-lines script. Each line is an array whose first
// element is an API function name.
func readScript(path string, stdin io.Reader) ([]scriptLine, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []scriptLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var call []string
		if err := json.Unmarshal([]byte(text), &call); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if len(call) == 0 {
			return nil, fmt.Errorf("line %d: empty call", n)
		}
		if want, ok := scriptArity[call[0]]; !ok {
			return nil, fmt.Errorf("line %d: unknown API function %q", n, call[0])
		} else if len(call)-1 != want {
			return nil, fmt.Errorf("line %d: %s takes %d argument(s), got %d", n, call[0], want, len(call)-1)
		}
		lines = append(lines, scriptLine{line: n, call: call})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

var scriptArity = map[string]int{
	rte.MethodInitialize:     1,
	rte.MethodTerminate:      1,
	rte.MethodCommit:         1,
	rte.MethodGetValue:       1,
	rte.MethodSetValue:       2,
	rte.MethodGetLastError:   0,
	rte.MethodGetErrorString: 1,
	rte.MethodGetDiagnostic:  1,
}

// errorQuery names the functions that read the error register without
// changing it; a non-zero code after them belongs to an earlier call.
var errorQuery = map[string]bool{
	rte.MethodGetLastError:   true,
	rte.MethodGetErrorString: true,
	rte.MethodGetDiagnostic:  true,
}

func invoke(e *rte.Engine, method string, args []string) string {
	switch method {
	case rte.MethodInitialize:
		return e.Initialize(args[0])
	case rte.MethodTerminate:
		return e.Terminate(args[0])
	case rte.MethodCommit:
		return e.Commit(args[0])
	case rte.MethodGetValue:
		return e.GetValue(args[0])
	case rte.MethodSetValue:
		return e.SetValue(args[0], args[1])
	case rte.MethodGetLastError:
		return e.GetLastError()
	case rte.MethodGetErrorString:
		return e.GetErrorString(args[0])
	case rte.MethodGetDiagnostic:
		return e.GetDiagnostic(args[0])
	}
	panic("cli: unvalidated method " + method)
}

// gatherMetrics flattens counters and histogram counts, sorted by name.
func gatherMetrics(reg *prometheus.Registry) ([]MetricSample, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	var samples []MetricSample
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			s := MetricSample{Name: fam.GetName()}
			for _, lp := range m.GetLabel() {
				if s.Labels == nil {
					s.Labels = map[string]string{}
				}
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, s)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}

func printRunResult(w io.Writer, r RunResult) {
	if r.Resumed {
		fmt.Fprintln(w, "Resumed from latest snapshot.")
	}
	for _, c := range r.Calls {
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			args[i] = fmt.Sprintf("%q", a)
		}
		fmt.Fprintf(w, "%4d  %s(%s) = %q  [%s]\n", c.Line, c.Method, strings.Join(args, ", "), c.Result, c.Error)
	}
	fmt.Fprintf(w, "session %s: %s\n", r.SessionID, r.State)
	for _, m := range r.Metrics {
		keys := make([]string, 0, len(m.Labels))
		for k := range m.Labels {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s=%q", k, m.Labels[k])
		}
		fmt.Fprintf(w, "%s{%s} %g\n", m.Name, strings.Join(pairs, ","), m.Value)
	}
}
