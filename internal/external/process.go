package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/cnis-extractor/internal/runner"
)

type processAdapter struct {
	cfg      Config
	execPath string
	runner   runner.Runner
	logger   *slog.Logger
}

func newProcessAdapter(cfg Config, execPath string, r runner.Runner, logger *slog.Logger) *processAdapter {
	return &processAdapter{cfg: cfg, execPath: execPath, runner: r, logger: logger}
}

func (p *processAdapter) Available() bool { return true }

// Process runs the tool against absPath. Exit status alone decides success; the JSON object is then
// located anywhere in the captured output.
func (p *processAdapter) Process(ctx context.Context, absPath string) (*Output, error) {
	if !filepath.IsAbs(absPath) {
		if abs, err := filepath.Abs(absPath); err == nil {
			absPath = abs
		}
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := p.runner.Run(ctx, p.execPath, p.cfg.Script, absPath)
	combined := combine(stdout, stderr)
	dur := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			p.logger.Warn("external extractor timed out", "path", absPath, "timeout", p.cfg.Timeout.String())
			return nil, fmt.Errorf("%w after %s", ErrTimeout, p.cfg.Timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		te := &ToolError{ExitCode: runner.ExitCode(err), Output: runner.Truncate(combined, 8<<10)}
		p.logger.Warn("external extractor failed",
			"path", absPath,
			"exit_code", te.ExitCode,
			"duration_ms", dur.Milliseconds(),
		)
		return nil, te
	}

	out, err := ParseOutput(combined)
	if err != nil {
		p.logger.Warn("external extractor output rejected", "path", absPath, "error", err)
		return nil, err
	}
	p.logger.Info("external extractor ok",
		"path", absPath,
		"duration_ms", dur.Milliseconds(),
		"records", len(out.Employment),
	)
	return out, nil
}

func (p *processAdapter) Probe(ctx context.Context) Environment {
	env := Environment{
		Executable:      p.cfg.Executable,
		ExecutablePath:  p.execPath,
		ExecutableFound: true,
		Script:          p.cfg.Script,
		ScriptFound:     fileExists(p.cfg.Script),
		Capabilities:    map[string]bool{},
	}
	probeCapabilities(ctx, p.runner, p.execPath, p.cfg, env.Capabilities)
	return env
}

// probeCapabilities runs the executable once per capability; exit status 0 means present.
func probeCapabilities(ctx context.Context, r runner.Runner, execPath string, cfg Config, into map[string]bool) {
	for _, c := range cfg.Capabilities {
		args := make([]string, len(cfg.CapabilityArgs))
		for i, a := range cfg.CapabilityArgs {
			if strings.Contains(a, "%s") {
				a = fmt.Sprintf(a, c)
			}
			args[i] = a
		}
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, _, err := r.Run(pctx, execPath, args...)
		cancel()
		into[c] = err == nil
	}
}

func combine(stdout, stderr []byte) string {
	if len(stderr) == 0 {
		return string(stdout)
	}
	if len(stdout) == 0 {
		return string(stderr)
	}
	return string(stdout) + "\n" + string(stderr)
}
