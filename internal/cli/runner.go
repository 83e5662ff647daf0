package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/seitarof/gen-inspection/internal/inspector"
	"github.com/seitarof/gen-inspection/internal/resolver"
	"github.com/seitarof/gen-inspection/internal/scope"
	"github.com/seitarof/gen-inspection/internal/writer"
)

// Runner orchestrates resolver/scope/inspector/writer layers.
type Runner interface {
	Run(ctx context.Context, cfg *Config) error
}

// LoadScope is a type-loading scope that must be closed after use.
type LoadScope interface {
	inspector.TypeLoader
	Close() error
}

// ScopeRunner opens a fresh scope for one classpath, hands it to fn and
// closes it again whatever fn returns.
type ScopeRunner func(ctx context.Context, cp resolver.Classpath, fn func(LoadScope) error) error

// RequestError adds request context to a failure.
type RequestError struct {
	Artifacts []string
	TypeName  string
	Err       error
}

func (e *RequestError) Error() string {
	target := "[" + strings.Join(e.Artifacts, ", ") + "]"
	if e.TypeName != "" {
		return fmt.Sprintf("%s in %s: %v", e.TypeName, target, e.Err)
	}
	return fmt.Sprintf("%s: %v", target, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

type runnerImpl struct {
	resolver  resolver.Resolver
	withScope ScopeRunner
	inspector inspector.Inspector
	writer    writer.Writer
}

// NewRunner creates a default runner implementation.
func NewRunner(
	r resolver.Resolver,
	withScope ScopeRunner,
	i inspector.Inspector,
	w writer.Writer,
) Runner {
	return &runnerImpl{
		resolver:  r,
		withScope: withScope,
		inspector: i,
		writer:    w,
	}
}

// DefaultScopeRunner runs scopes through scope.With.
func DefaultScopeRunner(opts scope.Options) ScopeRunner {
	return func(ctx context.Context, cp resolver.Classpath, fn func(LoadScope) error) error {
		return scope.With(ctx, cp, opts, func(s *scope.Scope) error {
			return fn(s)
		})
	}
}

// Run validates cfg and processes its requests one after another. A failing
// request is logged and the run moves on to the next one unless FailFast is
// set; all failures are returned joined.
func (r *runnerImpl) Run(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var errs []error
	for _, req := range cfg.Requests() {
		err := r.runRequest(ctx, cfg, req)
		if err == nil {
			continue
		}
		if cfg.FailFast {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *runnerImpl) runRequest(ctx context.Context, cfg *Config, req Request) error {
	cp, err := r.resolver.Resolve(ctx, req.Artifacts)
	if err != nil {
		log.Error("resolution failed", "artifacts", req.Artifacts, "err", err)
		return &RequestError{Artifacts: req.Artifacts, Err: err}
	}

	var inspectErr error
	err = r.withScope(ctx, cp, func(sc LoadScope) error {
		inspectErr = r.inspectAll(ctx, cfg, sc, req)
		return inspectErr
	})
	if err == nil || err == inspectErr {
		return err
	}
	log.Error("scope failed", "artifacts", req.Artifacts, "err", err)
	return &RequestError{Artifacts: req.Artifacts, Err: err}
}

func (r *runnerImpl) inspectAll(ctx context.Context, cfg *Config, sc LoadScope, req Request) error {
	var errs []error
	for _, name := range req.TypeNames {
		if err := r.inspectOne(ctx, cfg, sc, name); err != nil {
			log.Error("inspection failed", "type", name, "artifacts", req.Artifacts, "err", err)
			rerr := &RequestError{Artifacts: req.Artifacts, TypeName: name, Err: err}
			if cfg.FailFast {
				return rerr
			}
			errs = append(errs, rerr)
		}
	}
	return errors.Join(errs...)
}

func (r *runnerImpl) inspectOne(ctx context.Context, cfg *Config, sc LoadScope, name string) error {
	model, err := r.inspector.Inspect(ctx, sc, name)
	if err != nil {
		return err
	}
	dest := writer.Destination(cfg.OutputDir, cfg.OutputFile, cfg.Prefix, name)
	if err := r.writer.Write(model, dest); err != nil {
		return err
	}
	log.Info("created", "path", dest)
	return nil
}
