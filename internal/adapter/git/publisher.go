// Package git publishes dataset changes to a remote repository by shelling
// out to the git CLI.
package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/city-stats-service/internal/observability"
)

// Runner executes a git command in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Publisher commits and pushes a single file.
type Publisher struct {
	runner  Runner
	dir     string
	remote  string
	branch  string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Publisher for the working tree at dir.
func NewPublisher(runner Runner, dir, remote, branch string, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Publisher{
		runner:  runner,
		dir:     dir,
		remote:  remote,
		branch:  branch,
		metrics: metrics,
		logger:  logger,
	}
}

// Sync rebases the working tree onto the remote branch.
func (p *Publisher) Sync(ctx context.Context) error {
	p.logger.Info("pulling latest changes", "remote", p.remote, "branch", p.branch)
	if _, err := p.runner.Run(ctx, p.dir, "pull", "--rebase", p.remote, p.branch); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Publish stages path and, if it differs from HEAD, commits it alone with
// message and pushes. It reports whether a commit was pushed. Other changes in
// the working tree are left untouched.
func (p *Publisher) Publish(ctx context.Context, path, message string) (bool, error) {
	rel := p.relative(path)

	if _, err := p.runner.Run(ctx, p.dir, "add", "--", rel); err != nil {
		return p.fail(err)
	}

	status, err := p.runner.Run(ctx, p.dir, "status", "--porcelain", "--", rel)
	if err != nil {
		return p.fail(err)
	}
	if strings.TrimSpace(status) == "" {
		p.logger.Info("no changes detected, skipping commit", "path", rel)
		p.count("clean")
		return false, nil
	}

	if _, err := p.runner.Run(ctx, p.dir, "commit", "-m", message, "--", rel); err != nil {
		return p.fail(err)
	}
	if _, err := p.runner.Run(ctx, p.dir, "push", p.remote, p.branch); err != nil {
		return p.fail(err)
	}

	p.logger.Info("changes committed and pushed", "path", rel, "message", message)
	p.count("committed")
	return true, nil
}

func (p *Publisher) fail(err error) (bool, error) {
	p.count("error")
	return false, fmt.Errorf("publish: %w", err)
}

func (p *Publisher) count(outcome string) {
	if p.metrics != nil {
		p.metrics.PublishOutcomes.WithLabelValues(outcome).Inc()
	}
}

// relative returns path relative to the working tree when it lies inside it.
func (p *Publisher) relative(path string) string {
	absDir, err := filepath.Abs(p.dir)
	if err != nil {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
