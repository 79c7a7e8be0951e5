package translate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/cparse"
	"github.com/wippyai/ffi-bridge/emit"
	"github.com/wippyai/ffi-bridge/typemap"
)

// Config holds configuration for translator creation.
type Config struct {
	// CacheDir persists generated modules under fingerprint-named
	// subdirectories and reuses them across processes. Empty disables
	// the disk cache.
	CacheDir string
}

// Translator runs the parse, map, and emit phases and caches the results.
type Translator struct {
	cfg  Config
	memo sync.Map // Fingerprint -> *emit.GeneratedModule
}

// New creates a translator with in-memory memoization only.
func New() *Translator {
	return NewWithConfig(nil)
}

// NewWithConfig creates a translator with custom configuration.
func NewWithConfig(cfg *Config) *Translator {
	t := &Translator{}
	if cfg != nil {
		t.cfg = *cfg
	}
	return t
}

// Translate turns the request's headers into a generated binding module.
// Repeated requests with the same fingerprint return the same module value;
// callers must not modify it.
func (t *Translator) Translate(ctx context.Context, req Request) (*emit.GeneratedModule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req = req.normalized()
	headers, err := readHeaders(req)
	if err != nil {
		return nil, err
	}
	fp := fingerprintOf(req, headers)

	if cached, ok := t.memo.Load(fp); ok {
		Logger().Debug("memo hit", zap.String("fingerprint", fp.Short()))
		return cached.(*emit.GeneratedModule), nil
	}

	if mod, ok := t.loadCached(fp); ok {
		actual, _ := t.memo.LoadOrStore(fp, mod)
		return actual.(*emit.GeneratedModule), nil
	}

	mod, err := t.run(ctx, req)
	if err != nil {
		return nil, err
	}

	if t.cfg.CacheDir != "" {
		if err := t.storeCached(fp, mod); err != nil {
			Logger().Warn("disk cache write failed",
				zap.String("fingerprint", fp.Short()), zap.Error(err))
		}
	}

	// Under a concurrent double translation the first stored module wins;
	// emission is deterministic, so both are byte-identical.
	actual, _ := t.memo.LoadOrStore(fp, mod)
	return actual.(*emit.GeneratedModule), nil
}

func (t *Translator) run(ctx context.Context, req Request) (*emit.GeneratedModule, error) {
	start := time.Now()
	g, err := cparse.Parse(cparse.Options{
		HeaderPaths:  req.HeaderPaths,
		IncludePaths: req.IncludePaths,
		Defines:      req.Defines,
		Sources:      req.Sources,
	})
	if err != nil {
		return nil, err
	}
	parsed := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := typemap.Map(g, req.Platform)
	if err != nil {
		return nil, err
	}
	mapped := time.Now()

	mod, err := emit.Emit(m, emit.Options{Package: req.Package, Library: req.Library})
	if err != nil {
		return nil, err
	}

	Logger().Debug("translated",
		zap.String("platform", req.Platform.Name),
		zap.Int("symbols", len(mod.Manifest.Symbols)),
		zap.Duration("parse", parsed.Sub(start)),
		zap.Duration("map", mapped.Sub(parsed)),
		zap.Duration("emit", time.Since(mapped)))

	return mod, nil
}
