package serializer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/rtsl/internal/deps"
	"github.com/roach88/rtsl/internal/identity"
	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

// Engine serializes and deserializes object graphs over one type registry.
//
// Thread-safety: an Engine holds no per-pass state and may run passes over
// different graphs concurrently. The registry must be fully built first.
type Engine struct {
	types   *surrogate.Registry
	walker  *deps.Walker
	logger  *slog.Logger
	passIDs PassIDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithPassIDs sets the pass id generator. Default: UUIDv7Generator.
func WithPassIDs(g PassIDGenerator) Option {
	return func(e *Engine) {
		e.passIDs = g
	}
}

// New creates an engine over types.
func New(types *surrogate.Registry, opts ...Option) *Engine {
	e := &Engine{
		types:   types,
		walker:  deps.NewWalker(types),
		logger:  slog.Default(),
		passIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Types returns the engine's type registry.
func (e *Engine) Types() *surrogate.Registry {
	return e.types
}

// Snapshot reads every object reachable from roots into a payload.
//
// Ids are assigned breadth first from the roots, so records appear in
// visit order and the payload holds no unreachable objects.
func (e *Engine) Snapshot(ctx context.Context, roots ...any) (*wire.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pass := e.passIDs.Generate()
	return e.snapshot(pass, roots)
}

func (e *Engine) snapshot(pass string, roots []any) (*wire.Payload, error) {
	ids := identity.New()
	rootIDs, err := e.walker.Reachable(ids, roots...)
	if err != nil {
		return nil, fmt.Errorf("walk roots: %w", err)
	}

	rctx := &surrogate.ReadContext{IDs: ids}
	records := make([]*wire.Record, 0, ids.Len())
	// ReadFrom may still assign ids if a surrogate reads a reference its
	// GetDepsFrom did not report; the loop picks those objects up too.
	for id := wire.ReferenceID(1); int(id) <= ids.Len(); id++ {
		obj, _ := ids.Object(id)
		rec, err := e.types.ReadFrom(rctx, obj)
		if err != nil {
			return nil, fmt.Errorf("read object %d: %w", id, err)
		}
		records = append(records, rec)
	}

	p := wire.NewPayload(rootIDs, records)
	e.logger.Debug("snapshot taken",
		"pass", pass,
		"roots", len(rootIDs),
		"records", len(records),
	)
	return p, nil
}

// Serialize encodes every object reachable from roots.
func (e *Engine) Serialize(ctx context.Context, roots ...any) ([]byte, error) {
	data, _, err := e.SerializePayload(ctx, roots...)
	return data, err
}

// SerializePayload is Serialize, also returning the payload that was
// encoded.
func (e *Engine) SerializePayload(ctx context.Context, roots ...any) ([]byte, *wire.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	pass := e.passIDs.Generate()

	p, err := e.snapshot(pass, roots)
	if err != nil {
		e.logger.Error("serialize failed", "pass", pass, "error", err)
		return nil, nil, err
	}
	data, err := wire.Encode(p)
	if err != nil {
		e.logger.Error("serialize failed", "pass", pass, "error", err)
		return nil, nil, fmt.Errorf("encode payload: %w", err)
	}

	e.logger.Info("graph serialized",
		"pass", pass,
		"records", len(p.Records),
		"bytes", len(data),
		"digest", wire.Digest(data),
	)
	return data, p, nil
}

// Decode parses payload bytes against the engine's type registry.
func (e *Engine) Decode(data []byte) (*wire.Payload, error) {
	return wire.Decode(data, e.types)
}

// Deserialize decodes data and rebuilds its object graph with the
// two-phase load protocol.
//
// FORMAT_ERROR and TYPE_MISMATCH abort and return no graph. Dangling
// references are reported through LoadResult.Err unless
// deps.FailOnDangling is passed.
func (e *Engine) Deserialize(ctx context.Context, data []byte, opts ...deps.LoadOption) (*deps.LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := e.Decode(data)
	if err != nil {
		e.logger.Error("deserialize failed", "error", err)
		return nil, err
	}
	return e.restore(e.passIDs.Generate(), p, opts)
}

// Restore rebuilds the object graph of an already decoded payload.
func (e *Engine) Restore(ctx context.Context, p *wire.Payload, opts ...deps.LoadOption) (*deps.LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.restore(e.passIDs.Generate(), p, opts)
}

func (e *Engine) restore(pass string, p *wire.Payload, opts []deps.LoadOption) (*deps.LoadResult, error) {
	loader := deps.NewLoader(e.types, opts...)
	res, err := loader.Load(p)
	if err != nil {
		e.logger.Error("load failed",
			"pass", pass,
			"state", loader.State().String(),
			"error", err,
		)
		return nil, err
	}

	if len(res.Dangling) > 0 {
		e.logger.Warn("dangling references left unset",
			"pass", pass,
			"count", len(res.Dangling),
			"ids", deps.DanglingIDs(res.Dangling).Sorted(),
		)
	}
	e.logger.Info("graph deserialized",
		"pass", pass,
		"records", len(res.Objects),
		"roots", len(res.Roots),
		"cycles", len(res.Cycles),
	)
	return res, nil
}

// ComputeDependencies returns the ids referenced by a payload: the
// transitive closure from its roots, or every reference when the payload
// declares no roots. Dangling ids are included.
func (e *Engine) ComputeDependencies(data []byte) (wire.IDSet, error) {
	p, err := e.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(p.Roots) > 0 {
		return e.walker.Closure(p, p.Roots...)
	}

	all := wire.NewIDSet()
	for _, rec := range p.Records {
		d, err := e.walker.GetDeps(rec)
		if err != nil {
			return nil, err
		}
		all.Union(d)
	}
	return all, nil
}

// ComputeDependenciesFrom returns the ids referenced by the graph reachable
// from roots, numbered the way Serialize would number them.
func (e *Engine) ComputeDependenciesFrom(roots ...any) (wire.IDSet, error) {
	ids := identity.New()
	if _, err := e.walker.Reachable(ids, roots...); err != nil {
		return nil, err
	}

	all := wire.NewIDSet()
	for _, id := range ids.IDs() {
		obj, _ := ids.Object(id)
		d, err := e.walker.GetDepsFrom(ids, obj)
		if err != nil {
			return nil, err
		}
		all.Union(d)
	}
	return all, nil
}
