package ddl

import (
	"fmt"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// HistoryStrategy renders how history tables are populated. There are four:
// an inline trigger body or a trigger calling a package procedure, each
// with or without a logging call in the error handler.
type HistoryStrategy interface {
	Name() string
	// Emit renders the artifacts for every source table with a history
	// table, in the order given.
	Emit(sources []*schema.Table) HistoryArtifacts
}

// HistoryArtifacts separates supporting objects, which must exist before
// any trigger compiles, from the triggers themselves.
type HistoryArtifacts struct {
	Support  []build.Artifact
	Triggers []build.Artifact
}

func newHistoryStrategy(f format) HistoryStrategy {
	o := f.opts
	switch {
	case o.HistoryProcedures && o.HistoryLogging:
		return loggedProcedureHistory{f: f, logProc: o.LoggingProcedure}
	case o.HistoryProcedures:
		return procedureHistory{f: f}
	case o.HistoryLogging:
		return loggedInlineHistory{f: f, logProc: o.LoggingProcedure}
	default:
		return inlineHistory{f: f}
	}
}

// historyEvent is one DML event captured into the history table.
type historyEvent struct {
	dml    string // INSERT, UPDATE, DELETE
	record string // NEW or OLD
}

var historyEvents = []historyEvent{
	{"INSERT", "NEW"},
	{"UPDATE", "NEW"},
	{"DELETE", "OLD"},
}

// HistoryTriggerName names the history trigger of table for a DML event.
func HistoryTriggerName(table, dml string) string {
	return fmt.Sprintf("%s_H_%s_TRG", table, dml[:3])
}

// copiedColumns are the history columns carried over from the source.
func copiedColumns(src *schema.Table) []string {
	var cols []string
	for _, c := range src.HistoryTable.Columns {
		if !c.Derived {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// inlineInsert renders the INSERT into the history table for one event.
func inlineInsert(f format, src *schema.Table, ev historyEvent, depth int) string {
	cols := append([]string{"CHANGE"}, copiedColumns(src)...)
	vals := []string{"'" + ev.dml + "'"}
	for _, c := range cols[1:] {
		vals = append(vals, ":"+ev.record+"."+c)
	}
	t0, t1 := f.tab(depth), f.tab(depth+1)

	var b strings.Builder
	fmt.Fprintf(&b, "%sINSERT INTO %s\n", t0, src.HistoryTable.FullName())
	fmt.Fprintf(&b, "%s(\n%s\n%s)\n", t0, f.wrap(cols, t1), t0)
	fmt.Fprintf(&b, "%sVALUES\n", t0)
	fmt.Fprintf(&b, "%s(\n%s\n%s);\n", t0, f.wrap(vals, t1), t0)
	return b.String()
}

func historyTrigger(f format, src *schema.Table, ev historyEvent, body string) build.Artifact {
	return f.trigger(src, trigger{
		name:   HistoryTriggerName(src.Name, ev.dml),
		timing: "BEFORE " + ev.dml,
		body:   body,
		prompt: "trigger for automated history",
	})
}

func historyError(src *schema.Table) string {
	return fmt.Sprintf("'Error inserting into history table %s - Error: ' || sqlerrm", src.HistoryTable.FullName())
}

// inlineHistory writes the history row directly from each trigger.
type inlineHistory struct {
	f format
}

func (inlineHistory) Name() string { return "inline" }

func (h inlineHistory) Emit(sources []*schema.Table) HistoryArtifacts {
	var out HistoryArtifacts
	for _, src := range sources {
		for _, ev := range historyEvents {
			out.Triggers = append(out.Triggers, historyTrigger(h.f, src, ev, inlineInsert(h.f, src, ev, 1)))
		}
	}
	return out
}

// loggedInlineHistory writes the history row from each trigger and reports
// failures through the logging procedure before re-raising.
type loggedInlineHistory struct {
	f       format
	logProc string
}

func (loggedInlineHistory) Name() string { return "inline with logging" }

func (h loggedInlineHistory) Emit(sources []*schema.Table) HistoryArtifacts {
	var out HistoryArtifacts
	for _, src := range sources {
		for _, ev := range historyEvents {
			t1, t2 := h.f.tab(1), h.f.tab(2)
			trg := qualify(src.Schema, HistoryTriggerName(src.Name, ev.dml))

			var b strings.Builder
			b.WriteString(inlineInsert(h.f, src, ev, 1))
			b.WriteString("EXCEPTION\n")
			fmt.Fprintf(&b, "%sWHEN OTHERS THEN\n", t1)
			fmt.Fprintf(&b, "%s%s(%s, '%s');\n", t2, h.logProc, historyError(src), trg)
			fmt.Fprintf(&b, "%sRAISE;\n", t2)
			out.Triggers = append(out.Triggers, historyTrigger(h.f, src, ev, b.String()))
		}
	}
	return out
}

// procedureHistory emits one package per schema holding a write procedure
// per history table; the triggers call it.
type procedureHistory struct {
	f format
}

func (procedureHistory) Name() string { return "procedure" }

func (h procedureHistory) Emit(sources []*schema.Table) HistoryArtifacts {
	return emitPackages(h.f, sources, func(src *schema.Table, proc string) string {
		return ""
	})
}

// loggedProcedureHistory is procedureHistory with a logging call in each
// procedure's error handler.
type loggedProcedureHistory struct {
	f       format
	logProc string
}

func (loggedProcedureHistory) Name() string { return "procedure with logging" }

func (h loggedProcedureHistory) Emit(sources []*schema.Table) HistoryArtifacts {
	return emitPackages(h.f, sources, func(src *schema.Table, proc string) string {
		return fmt.Sprintf("%s%s(message_out, '%s');\n", h.f.tab(3), h.logProc, proc)
	})
}

// HistoryPackageName names the per-schema history package.
func HistoryPackageName(schemaName string) string {
	return schema.AppName(schemaName) + "_HISTORY"
}

// HistoryProcedureName names the procedure writing one history table.
func HistoryProcedureName(table string) string {
	return "P_H_" + table + "_WRITE"
}

func paramName(column string) string {
	return "p_" + strings.ToLower(column) + "_in"
}

// emitPackages renders a package spec and body per schema followed by the
// triggers calling them. onError returns extra handler lines for a
// procedure, given its package-qualified name.
func emitPackages(f format, sources []*schema.Table, onError func(src *schema.Table, proc string) string) HistoryArtifacts {
	var out HistoryArtifacts

	var schemas []string
	bySchema := make(map[string][]*schema.Table)
	for _, src := range sources {
		if _, ok := bySchema[src.Schema]; !ok {
			schemas = append(schemas, src.Schema)
		}
		bySchema[src.Schema] = append(bySchema[src.Schema], src)
	}

	for _, s := range schemas {
		tables := bySchema[s]
		pkg := HistoryPackageName(s)
		qpkg := qualify(s, pkg)
		obj := []build.Object{{Kind: build.KindPackage, Name: qpkg}}

		var spec, body strings.Builder
		fmt.Fprintf(&spec, "prompt --Adding %s package\n\n", qpkg)
		fmt.Fprintf(&spec, "CREATE OR REPLACE PACKAGE %s AS\n\n", qpkg)
		fmt.Fprintf(&body, "prompt --Adding %s package body\n\n", qpkg)
		fmt.Fprintf(&body, "CREATE OR REPLACE PACKAGE BODY %s AS\n\n", qpkg)

		for _, src := range tables {
			proc := HistoryProcedureName(src.Name)
			params := procParams(f, src)
			fmt.Fprintf(&spec, "%sPROCEDURE %s\n%s(\n%s%s);\n\n", f.tab(1), proc, f.tab(1), params, f.tab(1))
			body.WriteString(procBody(f, src, proc, params, onError(src, pkg+"."+proc)))
		}

		fmt.Fprintf(&spec, "END %s;\n", pkg)
		spec.WriteString(plsqlEnd("package", qpkg))
		if app := schema.AppName(s); s != "" && app != s {
			fmt.Fprintf(&spec, "\nGRANT EXECUTE ON %s TO %s;\n", qpkg, app)
		}
		fmt.Fprintf(&body, "END %s;\n", pkg)
		body.WriteString(plsqlEnd("package body", qpkg))

		out.Support = append(out.Support,
			build.Artifact{Phase: build.PhaseTriggers, Name: pkg + "_SPEC", SQL: spec.String(), Objects: obj},
			build.Artifact{Phase: build.PhaseTriggers, Name: pkg + "_BODY", SQL: body.String(), Objects: obj},
		)

		for _, src := range tables {
			for _, ev := range historyEvents {
				out.Triggers = append(out.Triggers, historyTrigger(f, src, ev, procCall(f, src, qpkg, ev)))
			}
		}
	}
	return out
}

func procParams(f format, src *schema.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%sIN VARCHAR2\n", f.tab(2), f.pad("p_change_in"))
	for _, name := range copiedColumns(src) {
		c := src.HistoryTable.Column(name)
		fmt.Fprintf(&b, "%s, %sIN %s\n", f.tab(2), f.pad(paramName(name)), c.Type)
	}
	return b.String()
}

func procBody(f format, src *schema.Table, proc, params, onError string) string {
	cols := append([]string{"CHANGE"}, copiedColumns(src)...)
	vals := make([]string, len(cols))
	vals[0] = "p_change_in"
	for i, c := range cols[1:] {
		vals[i+1] = paramName(c)
	}
	t1, t2, t3 := f.tab(1), f.tab(2), f.tab(3)

	var b strings.Builder
	fmt.Fprintf(&b, "%sPROCEDURE %s\n%s(\n%s%s) IS\n", t1, proc, t1, params, t1)
	fmt.Fprintf(&b, "%smessage_out VARCHAR2(4000);\n", t2)
	fmt.Fprintf(&b, "%sBEGIN\n", t1)
	fmt.Fprintf(&b, "%sINSERT INTO %s (\n%s\n", t2, src.HistoryTable.FullName(), f.wrap(cols, t3))
	fmt.Fprintf(&b, "%s) VALUES (\n%s\n%s);\n", t2, f.wrap(vals, t3), t2)
	fmt.Fprintf(&b, "%sEXCEPTION\n", t1)
	fmt.Fprintf(&b, "%sWHEN OTHERS THEN\n", t2)
	fmt.Fprintf(&b, "%smessage_out := %s;\n", t3, historyError(src))
	b.WriteString(onError)
	fmt.Fprintf(&b, "%sraise_application_error(-20000, message_out);\n", t3)
	fmt.Fprintf(&b, "%sEND %s;\n\n", t1, proc)
	return b.String()
}

func procCall(f format, src *schema.Table, qpkg string, ev historyEvent) string {
	t1, t2 := f.tab(1), f.tab(2)

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s.%s\n%s(\n", t1, qpkg, HistoryProcedureName(src.Name), t1)
	fmt.Fprintf(&b, "%s%s=> '%s'\n", t2, f.pad("p_change_in"), ev.dml)
	for _, c := range copiedColumns(src) {
		fmt.Fprintf(&b, "%s, %s=> :%s.%s\n", t2, f.pad(paramName(c)), ev.record, c)
	}
	fmt.Fprintf(&b, "%s);\n", t1)
	return b.String()
}
