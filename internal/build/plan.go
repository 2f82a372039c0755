package build

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/hurou927/ora-schema-gen/internal/config"
)

const separator = "-------------------------"

// Options configures plan layout.
type Options struct {
	Dirs      config.Directories
	BuildFile string
	CleanFile string
	Clean     bool
	// TableOrder is the parents-first creation order of tables. Table
	// artifacts follow it; artifacts of unlisted tables keep emission order.
	TableOrder []string
}

// OptionsFrom derives plan options from the configuration.
func OptionsFrom(cfg *config.Config, tableOrder []string) Options {
	return Options{
		Dirs:       cfg.Files.Directories,
		BuildFile:  cfg.Files.BuildFile,
		CleanFile:  cfg.Files.CleanFile,
		Clean:      cfg.CleanEnabled(),
		TableOrder: tableOrder,
	}
}

// File is one file of the plan, relative to the output directory.
type File struct {
	Path    string
	Content string
}

// Digest returns the xxh3 hash of the content in hex.
func (f File) Digest() string {
	return fmt.Sprintf("%016x", xxh3.HashString(f.Content))
}

// Plan is the complete, ordered output of a run.
type Plan struct {
	// Artifacts in build order.
	Artifacts []Artifact
	// Files holds every artifact file, then build.sql and clean.sql.
	Files []File

	opts Options
}

// New orders artifacts by phase and renders the aggregate scripts. Within a
// phase, emission order is kept, except that table artifacts follow
// opts.TableOrder.
func New(artifacts []Artifact, opts Options) (*Plan, error) {
	rank := make(map[string]int, len(opts.TableOrder))
	for i, t := range opts.TableOrder {
		rank[t] = i
	}

	ordered := make([]Artifact, len(artifacts))
	copy(ordered, artifacts)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		if a.Phase != PhaseTables {
			return false
		}
		ra, okA := rank[a.Table]
		rb, okB := rank[b.Table]
		if okA && okB {
			return ra < rb
		}
		return okA && !okB
	})

	p := &Plan{Artifacts: ordered, opts: opts}

	seen := make(map[string]bool, len(ordered))
	for _, a := range ordered {
		rel := p.Path(a)
		if seen[rel] {
			return nil, fmt.Errorf("two artifacts write %s", rel)
		}
		seen[rel] = true
		p.Files = append(p.Files, File{Path: rel, Content: a.SQL})
	}

	p.Files = append(p.Files, File{Path: opts.BuildFile, Content: p.BuildScript()})
	if opts.Clean {
		p.Files = append(p.Files, File{Path: opts.CleanFile, Content: p.CleanScript()})
	}
	return p, nil
}

// Dir returns the output subdirectory of a phase.
func (p *Plan) Dir(ph Phase) string {
	d := p.opts.Dirs
	switch ph {
	case PhaseSequences:
		return d.Sequences
	case PhaseTables:
		return d.Tables
	case PhasePrimaryKeys:
		return d.PrimaryKeys
	case PhaseIndexes:
		return d.Indexes
	case PhaseForeignKeys:
		return d.ForeignKeys
	case PhaseChecks:
		return d.CheckConstraints
	case PhaseComments:
		return d.Comments
	case PhaseTriggers:
		return d.Triggers
	case PhaseGrants:
		return d.Grants
	default:
		return strings.ToUpper(strings.ReplaceAll(ph.String(), " ", "_"))
	}
}

// Path returns the slash-separated path of an artifact relative to the
// output directory.
func (p *Plan) Path(a Artifact) string {
	return path.Join(p.Dir(a.Phase), a.FileName())
}

// ByPhase returns the artifacts of one phase in build order.
func (p *Plan) ByPhase(ph Phase) []Artifact {
	var out []Artifact
	for _, a := range p.Artifacts {
		if a.Phase == ph {
			out = append(out, a)
		}
	}
	return out
}

// BuildScript renders build.sql: one section per phase in build order.
func (p *Plan) BuildScript() string {
	var b strings.Builder
	b.WriteString("spo build.log\n\n")
	b.WriteString(separator + "\n")

	for _, ph := range Phases {
		arts := p.ByPhase(ph)
		if len(arts) == 0 {
			fmt.Fprintf(&b, "    -- No %s to add\n", p.Dir(ph))
		}
		for _, a := range arts {
			fmt.Fprintf(&b, "@%s\n", p.Path(a))
		}
		b.WriteString(separator + "\n")
	}

	b.WriteString("spo off\n")
	return b.String()
}

// CleanScript renders clean.sql: phases, artifacts and objects all in
// reverse, each created object replaced by its drop.
func (p *Plan) CleanScript() string {
	var b strings.Builder
	b.WriteString("spo clean.log\n\n")
	b.WriteString("prompt --Dropping all objects in this release\n\n")
	b.WriteString(separator + "\n")

	dropped := make(map[string]bool)
	for i := len(Phases) - 1; i >= 0; i-- {
		ph := Phases[i]
		arts := p.ByPhase(ph)

		var drops []string
		for j := len(arts) - 1; j >= 0; j-- {
			objs := arts[j].Objects
			for k := len(objs) - 1; k >= 0; k-- {
				stmt := objs[k].Drop()
				if stmt == "" || dropped[stmt] {
					continue
				}
				dropped[stmt] = true
				drops = append(drops, stmt)
			}
		}

		switch {
		case len(drops) > 0:
			for _, d := range drops {
				b.WriteString(d + "\n")
			}
		case ph == PhaseComments && len(arts) > 0:
			fmt.Fprintf(&b, "    -- No %s to drop (removed with their tables)\n", p.Dir(ph))
		default:
			fmt.Fprintf(&b, "    -- No %s to drop\n", p.Dir(ph))
		}
		b.WriteString(separator + "\n")
	}

	b.WriteString("spo off\n")
	return b.String()
}

// Summary counts artifacts per phase, in build order.
func (p *Plan) Summary() map[Phase]int {
	out := make(map[Phase]int, len(Phases))
	for _, a := range p.Artifacts {
		out[a.Phase]++
	}
	return out
}
