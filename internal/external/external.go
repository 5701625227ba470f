// Package external integrates the out-of-process structured extractor. The tool is invoked as
// `<executable> <script> <absolute file path>` and must print a JSON object whose "data" member
// carries the employment history.
package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/cnis-extractor/internal/runner"
)

// DefaultTimeout bounds a single tool invocation when Config.Timeout is zero.
const DefaultTimeout = 2 * time.Minute

var (
	ErrUnavailable     = errors.New("external extractor unavailable")
	ErrTimeout         = errors.New("external extractor timed out")
	ErrMalformedOutput = errors.New("external extractor produced malformed output")
)

// ToolError is a non-zero exit. Output is the combined stdout and stderr, for diagnostics only.
type ToolError struct {
	ExitCode int
	Output   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("external extractor exited with status %d", e.ExitCode)
}

type Config struct {
	Executable string // e.g. "python3"; empty disables the adapter
	Script     string // script path passed as the first argument
	Timeout    time.Duration
	// Capabilities are optional modules reported by Probe.
	Capabilities []string
	// CapabilityArgs is a format for probing one capability; %s is replaced with its name.
	CapabilityArgs []string
}

// StructuredExtractor is implemented by the tool-backed adapter and by the unavailable stub.
type StructuredExtractor interface {
	Process(ctx context.Context, absPath string) (*Output, error)
	Probe(ctx context.Context) Environment
	Available() bool
}

// Environment is the diagnostic view returned by Probe.
type Environment struct {
	Executable      string          `json:"executable"`
	ExecutablePath  string          `json:"executable_path,omitempty"`
	ExecutableFound bool            `json:"executable_found"`
	Script          string          `json:"script"`
	ScriptFound     bool            `json:"script_found"`
	Capabilities    map[string]bool `json:"capabilities"`
}

// New selects the variant once, at construction. The tool counts as available when the executable
// resolves on PATH and the script exists.
func New(cfg Config, r runner.Runner, logger *slog.Logger) StructuredExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.CapabilityArgs) == 0 {
		cfg.CapabilityArgs = []string{"-c", "import %s"}
	}

	execPath, execOK := runner.LookPath(cfg.Executable)
	scriptOK := fileExists(cfg.Script)
	if !execOK || !scriptOK {
		logger.Info("external extractor disabled",
			"executable", cfg.Executable,
			"executable_found", execOK,
			"script", cfg.Script,
			"script_found", scriptOK,
		)
		return &unavailable{cfg: cfg, r: r, logger: logger}
	}
	if r == nil {
		r = runner.NewExecRunner(logger)
	}
	return newProcessAdapter(cfg, execPath, r, logger)
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// unavailable stands in when the tool is not installed or not configured.
type unavailable struct {
	cfg    Config
	r      runner.Runner
	logger *slog.Logger
}

func (u *unavailable) Process(context.Context, string) (*Output, error) {
	return nil, ErrUnavailable
}

func (u *unavailable) Available() bool { return false }

func (u *unavailable) Probe(ctx context.Context) Environment {
	env := Environment{
		Executable:   u.cfg.Executable,
		Script:       u.cfg.Script,
		ScriptFound:  fileExists(u.cfg.Script),
		Capabilities: map[string]bool{},
	}
	env.ExecutablePath, env.ExecutableFound = runner.LookPath(u.cfg.Executable)
	for _, c := range u.cfg.Capabilities {
		env.Capabilities[c] = false
	}
	if env.ExecutableFound && u.r != nil {
		probeCapabilities(ctx, u.r, env.ExecutablePath, u.cfg, env.Capabilities)
	}
	return env
}
