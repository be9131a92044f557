package constraint

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/metrics"
	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Table is a document table with an inferred, enforced schema.
type Table struct {
	name     string
	store    docstore.Store
	norm     *value.Normalizer
	model    *schema.Model
	sanitize bool
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// Option configures a Table.
type Option func(*Table)

// WithSanitize turns the sanitize pipeline on or off. Default: on.
// When off, records are written as given and no refresh runs on writes.
func WithSanitize(on bool) Option {
	return func(t *Table) { t.sanitize = on }
}

// WithNormalizer sets the value normalizer. Default: value.NewNormalizer().
func WithNormalizer(n *value.Normalizer) Option {
	return func(t *Table) { t.norm = n }
}

// WithLogger sets the logger. Default: zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// WithMetrics records write, refresh and violation counters in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(t *Table) { t.metrics = m }
}

// WithName sets the table name used in logs and metric labels.
func WithName(name string) Option {
	return func(t *Table) { t.name = name }
}

// New creates a Table over store with an empty schema.
func New(store docstore.Store, opts ...Option) *Table {
	t := &Table{
		name:     "default",
		store:    store,
		model:    schema.New(),
		sanitize: true,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.norm == nil {
		t.norm = value.NewNormalizer()
	}
	t.logger = t.logger.With().Str("table", t.name).Logger()
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Insert sanitizes doc as a one-record batch and writes it.
func (t *Table) Insert(ctx context.Context, doc docstore.Document) (docstore.DocID, error) {
	ids, err := t.insert(ctx, "insert", []docstore.Document{doc})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertMultiple sanitizes docs as one batch. The store is called only when
// every record passes; otherwise nothing is written.
func (t *Table) InsertMultiple(ctx context.Context, docs []docstore.Document) ([]docstore.DocID, error) {
	if len(docs) == 0 {
		return []docstore.DocID{}, nil
	}
	return t.insert(ctx, "insert_multiple", docs)
}

func (t *Table) insert(ctx context.Context, op string, docs []docstore.Document) ([]docstore.DocID, error) {
	if !t.sanitize {
		ids, err := t.store.InsertMultiple(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.countWrite(op, len(ids))
		return ids, nil
	}

	if err := t.advance(ctx); err != nil {
		return nil, t.reject(op, err)
	}

	s, err := t.newSanitizer(true)
	if err != nil {
		return nil, t.reject(op, err)
	}
	clean := make([]docstore.Document, len(docs))
	for i, doc := range docs {
		c, err := s.clean(doc)
		if err != nil {
			return nil, t.reject(op, err)
		}
		if err := s.checkUnique(c, nil); err != nil {
			return nil, t.reject(op, err)
		}
		clean[i] = c
	}

	ids, err := t.store.InsertMultiple(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.commit()
	t.countWrite(op, len(ids))

	if err := t.advance(ctx); err != nil {
		return ids, t.observe(err)
	}
	return ids, nil
}

// Update merges fields into every matched document.
//
// Each name in match selects documents whose field equals the value given
// for it in fields; that key is removed from the payload so it is not itself
// rewritten. Several names combine with AND. When ids are given, only those
// documents are considered. The remaining payload is sanitized once and
// merged into each match. Returns the ids of the updated documents.
func (t *Table) Update(ctx context.Context, fields docstore.Document, match []string, ids ...docstore.DocID) ([]docstore.DocID, error) {
	payload := fields.Clone()
	preds := make([]docstore.Predicate, 0, len(match))
	for _, name := range match {
		raw, ok := payload[name]
		if !ok {
			return nil, fmt.Errorf("update: match field %q not in payload", name)
		}
		delete(payload, name)
		v, err := t.matchValue(name, raw)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		preds = append(preds, docstore.Eq(name, v))
	}
	where := docstore.And(preds...)

	if !t.sanitize {
		updated, err := t.store.Update(ctx, where, docstore.Merge(payload), ids)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		t.countWrite("update", len(updated))
		return updated, nil
	}

	if err := t.advance(ctx); err != nil {
		return nil, t.reject("update", err)
	}
	s, err := t.newSanitizer(false)
	if err != nil {
		return nil, t.reject("update", err)
	}
	clean, err := s.clean(payload)
	if err != nil {
		return nil, t.reject("update", err)
	}

	updated, err := t.store.Update(ctx, where, func(doc docstore.Document) (docstore.Document, error) {
		prev := doc.Clone()
		for k, v := range clean {
			doc[k] = v
		}
		if err := s.checkUnique(doc, prev); err != nil {
			return nil, err
		}
		return doc, nil
	}, ids)
	if err != nil {
		return nil, t.reject("update", err)
	}
	s.commit()
	t.countWrite("update", len(updated))

	if err := t.advance(ctx); err != nil {
		return updated, t.observe(err)
	}
	return updated, nil
}

// UpdateFunc replaces every matched document with fn's result, sanitized as
// a full record. A nil where matches every document.
func (t *Table) UpdateFunc(ctx context.Context, fn func(docstore.Document) docstore.Document, where docstore.Predicate, ids ...docstore.DocID) ([]docstore.DocID, error) {
	if !t.sanitize {
		updated, err := t.store.Update(ctx, where, func(doc docstore.Document) (docstore.Document, error) {
			return fn(doc), nil
		}, ids)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		t.countWrite("update", len(updated))
		return updated, nil
	}

	if err := t.advance(ctx); err != nil {
		return nil, t.reject("update", err)
	}
	s, err := t.newSanitizer(true)
	if err != nil {
		return nil, t.reject("update", err)
	}

	updated, err := t.store.Update(ctx, where, func(doc docstore.Document) (docstore.Document, error) {
		prev := doc.Clone()
		c, err := s.clean(fn(doc))
		if err != nil {
			return nil, err
		}
		if err := s.checkUnique(c, prev); err != nil {
			return nil, err
		}
		return c, nil
	}, ids)
	if err != nil {
		return nil, t.reject("update", err)
	}
	s.commit()
	t.countWrite("update", len(updated))

	if err := t.advance(ctx); err != nil {
		return updated, t.observe(err)
	}
	return updated, nil
}

// matchValue converts a raw match value to the form stored by the sanitizer.
func (t *Table) matchValue(field string, raw any) (any, error) {
	if !t.sanitize {
		return raw, nil
	}
	v, ok, err := t.uniqueKey(field, raw)
	if err != nil {
		return nil, NewUnsupportedValueError(field, err)
	}
	if !ok {
		return nil, fmt.Errorf("match field %q has no value", field)
	}
	return v, nil
}

// Schema runs a full refresh and returns the observed schema.
//
// This is a mutating read: the refresh advances the uniqueness index and
// learns unknown fields that showed a single type. Use Inspect for a pure
// scan.
func (t *Table) Schema(ctx context.Context) (schema.Snapshot, error) {
	return t.GetSchema(ctx, true)
}

// GetSchema returns the observed schema after a full refresh when refresh is
// true (see Schema), or the current live schema without scanning otherwise.
func (t *Table) GetSchema(ctx context.Context, refresh bool) (schema.Snapshot, error) {
	if !refresh {
		return t.model.Snapshot(), nil
	}
	snap, err := t.refresh(ctx, t.model, true, "schema")
	if err != nil {
		return schema.Snapshot{}, t.observe(err)
	}
	return *snap, nil
}

// Inspect scans the table like Schema but against a copy of the live schema,
// leaving types and the uniqueness index untouched.
func (t *Table) Inspect(ctx context.Context) (schema.Snapshot, error) {
	snap, err := t.refresh(ctx, t.model.Clone(), true, "inspect")
	if err != nil {
		return schema.Snapshot{}, t.observe(err)
	}
	return *snap, nil
}

// Refresh validates every stored document against the live schema and
// merges their values into the uniqueness index. It fails on the first
// violation; values merged before it stay merged.
func (t *Table) Refresh(ctx context.Context) error {
	return t.observe(t.advance(ctx))
}

func (t *Table) advance(ctx context.Context) error {
	_, err := t.refresh(ctx, t.model, false, "advance")
	return err
}

// SetSchema discards all learned state and applies cfg as the new baseline.
func (t *Table) SetSchema(cfg schema.Config) {
	t.model.Reset()
	t.model.Apply(cfg)
	t.logger.Debug().Int("fields", len(cfg)).Msg("schema set")
}

// UpdateSchema merges cfg into the live schema, keeping learned types and
// accepted unique values.
func (t *Table) UpdateSchema(cfg schema.Config) {
	t.model.Apply(cfg)
	t.logger.Debug().Int("fields", len(cfg)).Msg("schema updated")
}

// Documents returns every stored document with temporal values rendered as
// ISO-8601 strings, in store order.
func (t *Table) Documents(ctx context.Context) ([]docstore.Entry, error) {
	entries, err := t.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	out := make([]docstore.Entry, len(entries))
	for i, e := range entries {
		out[i] = docstore.Entry{ID: e.ID, Doc: value.JSONify(e.Doc)}
	}
	return out, nil
}

// observe logs and counts a constraint violation. Other errors and nil are
// returned unchanged.
func (t *Table) observe(err error) error {
	code := ErrorCodeOf(err)
	if code == "" {
		return err
	}
	t.logger.Warn().Err(err).Str("code", string(code)).Msg("constraint violation")
	if t.metrics != nil {
		t.metrics.Violations.WithLabelValues(t.name, string(code)).Inc()
	}
	return err
}

// reject records a write that never reached the store.
func (t *Table) reject(op string, err error) error {
	if ErrorCodeOf(err) == "" {
		return fmt.Errorf("%s: %w", op, err)
	}
	if t.metrics != nil {
		t.metrics.BatchesRejected.WithLabelValues(t.name, op).Inc()
	}
	return t.observe(err)
}

func (t *Table) countWrite(op string, n int) {
	t.logger.Debug().Str("op", op).Int("documents", n).Msg("documents written")
	if t.metrics != nil {
		t.metrics.DocumentsWritten.WithLabelValues(t.name, op).Add(float64(n))
	}
}
