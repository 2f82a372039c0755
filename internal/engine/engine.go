// Package engine runs a generation end to end: read inputs, build and
// resolve the schema model, emit artifacts, order them and write the plan.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/config"
	"github.com/hurou927/ora-schema-gen/internal/ddl"
	"github.com/hurou927/ora-schema-gen/internal/graph"
	"github.com/hurou927/ora-schema-gen/internal/output"
	"github.com/hurou927/ora-schema-gen/internal/schema"
	"github.com/hurou927/ora-schema-gen/internal/source"
)

// Inputs are the parsed input files.
type Inputs struct {
	Schema *source.Table
	// Grants is nil when the grants file does not exist.
	Grants *source.Table
}

// Generator orchestrates one run.
type Generator struct {
	cfg    *config.Config
	log    *slog.Logger
	dryRun bool

	model *schema.Model
	plan  *build.Plan
}

// New creates a Generator. In dry-run mode nothing is cleared or written.
func New(cfg *config.Config, log *slog.Logger, dryRun bool) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{cfg: cfg, log: log, dryRun: dryRun}
}

// Run generates the plan and, unless in dry-run mode, clears the output
// directory and writes it. The clear happens first and unconditionally; any
// later failure leaves the directory empty.
func (g *Generator) Run(ctx context.Context) (*build.Plan, error) {
	w := output.NewWriter(g.cfg.Files.OutputDirectory, g.log)
	if !g.dryRun {
		if err := w.Clear(); err != nil {
			return nil, err
		}
	}

	in, err := g.Load(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := g.BuildModel(in); err != nil {
		return nil, err
	}

	plan, err := g.Plan()
	if err != nil {
		return nil, err
	}

	if g.dryRun {
		return plan, nil
	}
	if err := w.WritePlan(plan); err != nil {
		return nil, err
	}
	g.log.Info("output written", "dir", w.Dir(), "files", len(plan.Files))
	return plan, nil
}

// Load reads the schema and grants files concurrently.
func (g *Generator) Load(ctx context.Context) (*Inputs, error) {
	files := g.cfg.Files
	in := &Inputs{}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var eg errgroup.Group
	eg.Go(func() error {
		t, err := source.ReadFile(files.SchemaFile, files.Encoding)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}
		in.Schema = t
		return nil
	})
	eg.Go(func() error {
		t, err := source.ReadFile(files.GrantsFile, files.Encoding)
		if errors.Is(err, fs.ErrNotExist) {
			g.log.Warn("grants file not found, no grants generated", "file", files.GrantsFile)
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading grants: %w", err)
		}
		in.Grants = t
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.log.Info("inputs loaded", "schema_rows", len(in.Schema.Rows), "file", files.SchemaFile)
	return in, nil
}

// BuildModel normalizes every row, folds the rows into the schema model and
// resolves it.
func (g *Generator) BuildModel(in *Inputs) (*schema.Model, error) {
	b := schema.NewBuilder(g.log)
	for _, raw := range in.Schema.Rows {
		row, err := schema.NormalizeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.cfg.Files.SchemaFile, err)
		}
		if err := b.Add(row); err != nil {
			return nil, fmt.Errorf("%s: %w", g.cfg.Files.SchemaFile, err)
		}
	}

	if in.Grants != nil {
		for _, raw := range in.Grants.Rows {
			gr, err := schema.NormalizeGrant(raw, in.Grants.Headers)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", g.cfg.Files.GrantsFile, err)
			}
			b.AddGrant(gr)
		}
	}

	m := b.Model()
	err := schema.Resolve(m, schema.ResolveOptions{
		Naming:      g.cfg.Naming,
		LOBDefaults: g.cfg.LOBDefaults,
		Tablespace:  g.cfg.Tablespace,
		Logger:      g.log,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}

	g.model = m
	g.log.Info("schema model built", "tables", len(m.Tables), "grants", len(m.Grants))
	return m, nil
}

// Plan emits all artifacts of the resolved model and orders them.
func (g *Generator) Plan() (*build.Plan, error) {
	if g.model == nil {
		return nil, errors.New("no schema model; call BuildModel first")
	}

	deps := graph.Build(g.model)
	topo := graph.TopoSortAll(deps)
	if err := graph.ValidateCycles(topo); err != nil {
		// Foreign keys are added after all tables exist, so a cycle only
		// affects the listing order.
		g.log.Warn("cycle tables created in input order", "reason", err.Error())
	}
	for _, e := range deps.External {
		g.log.Debug("foreign key to table outside the input", "table", e.ChildTable, "references", e.ParentTable)
	}
	order := topo.Sequence()

	em := ddl.New(ddl.OptionsFrom(g.cfg))
	g.log.Debug("history strategy", "strategy", em.History().Name())
	artifacts := em.Model(g.model, order)

	plan, err := build.New(artifacts, build.OptionsFrom(g.cfg, order))
	if err != nil {
		return nil, fmt.Errorf("planning output: %w", err)
	}
	g.plan = plan
	return plan, nil
}

// Summary returns one line per phase with its artifact count.
func (g *Generator) Summary() []string {
	if g.plan == nil {
		return nil
	}
	counts := g.plan.Summary()
	lines := make([]string, 0, len(build.Phases))
	for _, ph := range build.Phases {
		lines = append(lines, fmt.Sprintf("  %-18s %d", ph.String()+":", counts[ph]))
	}
	return lines
}
