// Package ddl renders resolved schema entities as Oracle DDL artifacts.
//
// Every emitter is a pure function of its entity and the Options. Textual
// references such as FK targets, check conditions and virtual expressions
// are emitted as written.
package ddl

import (
	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/config"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// Options are the formatting and generation settings of the emitters.
type Options struct {
	Indent          int
	TableMinSpacing int
	SplitOn         int

	// HistoryProcedures routes history triggers through a per-schema package.
	HistoryProcedures bool
	// HistoryLogging adds a logging call to history error handlers.
	HistoryLogging   bool
	LoggingProcedure string
}

// OptionsFrom derives emitter options from the configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Indent:            cfg.Formatting.Indent,
		TableMinSpacing:   cfg.Formatting.TableMinSpacing,
		SplitOn:           cfg.Formatting.SplitOn,
		HistoryProcedures: cfg.HistoryTables.UseProcedures,
		HistoryLogging:    cfg.HistoryTables.UseLogging,
		LoggingProcedure:  cfg.HistoryTables.LoggingProcedure,
	}
}

// Emitter renders artifacts. The history strategy is fixed when the
// emitter is created.
type Emitter struct {
	f       format
	history HistoryStrategy
}

// New creates an Emitter for opts.
func New(opts Options) *Emitter {
	if opts.Indent <= 0 {
		opts.Indent = 4
	}
	if opts.TableMinSpacing <= 0 {
		opts.TableMinSpacing = 30
	}
	if opts.SplitOn <= 0 {
		opts.SplitOn = 100
	}
	f := format{opts: opts}
	return &Emitter{f: f, history: newHistoryStrategy(f)}
}

// History returns the history strategy in use.
func (e *Emitter) History() HistoryStrategy { return e.history }

// Model renders every artifact of a resolved model. Tables are visited in
// tableOrder; tables missing from it follow in model order.
func (e *Emitter) Model(m *schema.Model, tableOrder []string) []build.Artifact {
	tables := orderTables(m, tableOrder)

	var out []build.Artifact
	var triggers []build.Artifact
	var histories []*schema.Table

	for _, t := range tables {
		out = append(out, e.Sequences(t)...)
		out = append(out, e.Table(t))
		if pk, ok := e.PrimaryKey(t); ok {
			out = append(out, pk)
		}
		out = append(out, e.Indexes(t)...)
		out = append(out, e.ForeignKeys(t)...)
		out = append(out, e.Checks(t)...)
		if c, ok := e.Comments(t); ok {
			out = append(out, c)
		}

		triggers = append(triggers, e.SequenceTriggers(t)...)
		if a, ok := e.AuditTrigger(t); ok {
			triggers = append(triggers, a)
		}
		if t.HistoryTable != nil {
			histories = append(histories, t)
		}
	}

	// Supporting packages precede every trigger that may call them.
	hist := e.history.Emit(histories)
	out = append(out, hist.Support...)
	out = append(out, triggers...)
	out = append(out, hist.Triggers...)

	out = append(out, e.Grants(m.Grants)...)
	return out
}

func orderTables(m *schema.Model, order []string) []*schema.Table {
	out := make([]*schema.Table, 0, len(m.Tables))
	seen := make(map[string]bool, len(m.Tables))
	for _, name := range order {
		if t := m.Table(name); t != nil && !seen[name] {
			out = append(out, t)
			seen[name] = true
		}
	}
	for _, t := range m.Tables {
		if !seen[t.FullName()] {
			out = append(out, t)
			seen[t.FullName()] = true
		}
	}
	return out
}
