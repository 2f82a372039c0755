package ddl

import (
	"fmt"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// Sequences renders CREATE SEQUENCE for every sequence of the table except
// shared ones. START WITH is written as given, so a referenced sequence name
// appears verbatim.
func (e *Emitter) Sequences(t *schema.Table) []build.Artifact {
	tab := e.f.tab(1)

	out := make([]build.Artifact, 0, len(t.Sequences))
	for _, s := range t.Sequences {
		if s.Shared {
			continue
		}
		name := qualify(t.Schema, s.Name)
		cycle := "NOCYCLE"
		if s.Cycle {
			cycle = "CYCLE"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "prompt --Adding %s sequence for %s.%s\n\n", name, t.Name, s.Column)
		fmt.Fprintf(&b, "CREATE SEQUENCE %s\n", name)
		fmt.Fprintf(&b, "%sSTART WITH %s\n", tab, s.Start)
		fmt.Fprintf(&b, "%sMINVALUE 1\n", tab)
		fmt.Fprintf(&b, "%sNOMAXVALUE\n", tab)
		fmt.Fprintf(&b, "%sCACHE 20\n", tab)
		fmt.Fprintf(&b, "%s%s\n", tab, cycle)
		fmt.Fprintf(&b, "%sNOORDER;\n", tab)

		out = append(out, build.Artifact{
			Phase:   build.PhaseSequences,
			Name:    s.Name,
			Table:   t.FullName(),
			SQL:     b.String(),
			Objects: []build.Object{{Kind: build.KindSequence, Name: name}},
		})
	}
	return out
}

// SequenceTriggerName names the trigger filling column from its sequence.
func SequenceTriggerName(table, column string) string {
	return table + "_" + column + "_TRG"
}

// SequenceTriggers renders a BEFORE INSERT trigger for each sequence that is
// populated by trigger. The trigger draws from the column's own sequence.
func (e *Emitter) SequenceTriggers(t *schema.Table) []build.Artifact {
	var out []build.Artifact
	for _, s := range t.Sequences {
		if !s.PopByTrigger {
			continue
		}
		trg := SequenceTriggerName(t.Name, s.Column)
		body := fmt.Sprintf("%s:new.%s := %s.nextval;\n", e.f.tab(1), s.Column, qualify(t.Schema, s.Name))
		when := fmt.Sprintf("new.%s IS NULL", s.Column)

		out = append(out, e.f.trigger(t, trigger{
			name:   trg,
			timing: "BEFORE INSERT",
			when:   when,
			body:   body,
			prompt: fmt.Sprintf("trigger for %s.%s", t.Name, s.Column),
		}))
	}
	return out
}

// trigger describes a row-level trigger on a table.
type trigger struct {
	name   string
	timing string
	when   string
	body   string
	prompt string
}

func (f format) trigger(t *schema.Table, tr trigger) build.Artifact {
	tab := f.tab(1)
	name := qualify(t.Schema, tr.name)

	var b strings.Builder
	fmt.Fprintf(&b, "prompt --Adding %s %s\n\n", name, tr.prompt)
	fmt.Fprintf(&b, "CREATE OR REPLACE TRIGGER %s\n", name)
	fmt.Fprintf(&b, "%s%s\n", tab, tr.timing)
	fmt.Fprintf(&b, "%sON %s REFERENCING NEW AS NEW OLD AS OLD\n", tab, t.FullName())
	fmt.Fprintf(&b, "%sFOR EACH ROW\n", tab)
	if tr.when != "" {
		fmt.Fprintf(&b, "%sWHEN (%s)\n", tab, tr.when)
	}
	b.WriteString("BEGIN\n")
	b.WriteString(tr.body)
	fmt.Fprintf(&b, "END %s;\n", tr.name)
	b.WriteString(plsqlEnd("trigger", name))

	return build.Artifact{
		Phase:   build.PhaseTriggers,
		Name:    tr.name,
		Table:   t.FullName(),
		SQL:     b.String(),
		Objects: []build.Object{{Kind: build.KindTrigger, Name: name}},
	}
}

// AuditTrigger renders the trigger stamping U_NAME and U_DATE on every
// insert and update.
func (e *Emitter) AuditTrigger(t *schema.Table) (build.Artifact, bool) {
	if !t.Audit {
		return build.Artifact{}, false
	}
	tab := e.f.tab(1)
	body := fmt.Sprintf("%s:new.U_DATE := SYSDATE;\n%s:new.U_NAME := USER;\n", tab, tab)
	return e.f.trigger(t, trigger{
		name:   t.Name + "_BIU",
		timing: "BEFORE INSERT OR UPDATE",
		body:   body,
		prompt: "trigger for audit",
	}), true
}
