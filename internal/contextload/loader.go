// Package contextload reads a project's recorded decisions and attempts
// from Markdown files under the project directory.
//
// Loading never fails hard. Missing, oversized, slow or malformed files
// produce warnings and the caller proceeds without that context.
package contextload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/ledger"
)

// Defaults.
const (
	DefaultDir           = ".safeguard"
	DefaultDecisionsFile = "decisions.md"
	DefaultAttemptsFile  = "attempts.md"
	DefaultReadTimeout   = 2 * time.Second
	DefaultMaxFileBytes  = 1 << 20
)

// Options configures a Loader. Zero values fall back to defaults.
type Options struct {
	Dir           string
	DecisionsFile string
	AttemptsFile  string
	ReadTimeout   time.Duration
	MaxFileBytes  int64
}

// Context is what was loaded for a project.
type Context struct {
	Success     bool                  `json:"success"`
	ProjectPath string                `json:"projectPath"`
	ProjectHash string                `json:"projectHash"`
	Decisions   []ledger.NewDecision  `json:"-"`
	Attempts    []attempts.NewAttempt `json:"-"`
	Blockers    []attempts.Blocker    `json:"blockers"`
	FilesRead   []string              `json:"filesRead"`
	Warnings    []string              `json:"warnings,omitempty"`
	Errors      []string              `json:"errors,omitempty"`
}

// Loader reads context files.
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(opts Options, logger *zap.Logger) *Loader {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.DecisionsFile == "" {
		opts.DecisionsFile = DefaultDecisionsFile
	}
	if opts.AttemptsFile == "" {
		opts.AttemptsFile = DefaultAttemptsFile
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{opts: opts, logger: logger}
}

// ProjectHash returns the first 16 hex characters of the SHA-256 of the
// cleaned absolute project path.
func ProjectHash(projectPath string) string {
	p := projectPath
	if abs, err := filepath.Abs(projectPath); err == nil {
		p = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(p)))
	return hex.EncodeToString(sum[:])[:16]
}

type fileResult struct {
	name     string
	data     string
	found    bool
	warnings []string
}

// Load reads both context files concurrently under the read timeout.
// Success means at least one file was read; its entries may still be
// empty.
func (l *Loader) Load(ctx context.Context, projectPath string) Context {
	out := Context{ProjectPath: projectPath, ProjectHash: ProjectHash(projectPath), Blockers: []attempts.Blocker{}, FilesRead: []string{}}
	if strings.TrimSpace(projectPath) == "" {
		out.Errors = append(out.Errors, "projectPath is required")
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.ReadTimeout)
	defer cancel()

	dir := filepath.Join(projectPath, l.opts.Dir)
	names := []string{l.opts.DecisionsFile, l.opts.AttemptsFile}
	results := make([]fileResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			results[i] = l.readFile(gctx, filepath.Join(dir, name), name)
			return nil
		})
	}
	_ = g.Wait()

	dec, att := results[0], results[1]
	for _, r := range results {
		out.Warnings = append(out.Warnings, r.warnings...)
		if r.found {
			out.FilesRead = append(out.FilesRead, r.name)
		}
	}

	if dec.found {
		ds, ws := ParseDecisions(dec.name, dec.data)
		out.Decisions = ds
		out.Warnings = append(out.Warnings, ws...)
	}
	if att.found {
		as, bs, ws := ParseAttempts(att.name, att.data)
		out.Attempts = as
		out.Blockers = append(out.Blockers, bs...)
		out.Warnings = append(out.Warnings, ws...)
	}

	out.Success = len(out.FilesRead) > 0
	if !out.Success {
		out.Errors = append(out.Errors, fmt.Sprintf("no context files found in %s", dir))
		l.logger.Warn("context not loaded",
			zap.String("project", projectPath),
			zap.Strings("warnings", out.Warnings),
		)
		return out
	}

	l.logger.Info("context loaded",
		zap.String("project", projectPath),
		zap.Int("decisions", len(out.Decisions)),
		zap.Int("attempts", len(out.Attempts)),
		zap.Int("blockers", len(out.Blockers)),
		zap.Int("warnings", len(out.Warnings)),
	)
	return out
}

// readFile reads at most MaxFileBytes. The read itself cannot be
// interrupted, so it runs in its own goroutine and is abandoned when ctx
// expires first.
func (l *Loader) readFile(ctx context.Context, path, name string) fileResult {
	r := fileResult{name: name}

	type readOut struct {
		data []byte
		err  error
	}
	ch := make(chan readOut, 1)
	go func() {
		f, err := os.Open(path)
		if err != nil {
			ch <- readOut{err: err}
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, l.opts.MaxFileBytes+1))
		ch <- readOut{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		r.warnings = append(r.warnings, fmt.Sprintf("%s: read timed out: %v", name, ctx.Err()))
		return r
	case res := <-ch:
		switch {
		case errors.Is(res.err, fs.ErrNotExist):
			r.warnings = append(r.warnings, fmt.Sprintf("%s: not found", name))
		case res.err != nil:
			r.warnings = append(r.warnings, fmt.Sprintf("%s: %v", name, res.err))
		case int64(len(res.data)) > l.opts.MaxFileBytes:
			r.warnings = append(r.warnings, fmt.Sprintf("%s: larger than %d bytes, skipped", name, l.opts.MaxFileBytes))
		default:
			r.data = string(res.data)
			r.found = true
		}
		return r
	}
}
