package ddl

import (
	"strings"
	"testing"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/config"
	"github.com/hurou927/ora-schema-gen/internal/schema"
	"github.com/hurou927/ora-schema-gen/internal/source"
)

// resolvedModel runs rows, given as header/value pair lists, through
// normalization, building and resolution.
func resolvedModel(t *testing.T, rows ...[]string) *schema.Model {
	t.Helper()
	b := schema.NewBuilder(nil)
	for i, kv := range rows {
		values := make(map[string]string, len(kv)/2)
		for j := 0; j+1 < len(kv); j += 2 {
			values[kv[j]] = kv[j+1]
		}
		r, err := schema.NormalizeRow(source.Row{Line: i + 2, Values: values})
		if err != nil {
			t.Fatalf("NormalizeRow(row %d) error = %v", i+2, err)
		}
		if err := b.Add(r); err != nil {
			t.Fatalf("Add(row %d) error = %v", i+2, err)
		}
	}
	m := b.Model()
	d := config.Default()
	if err := schema.Resolve(m, schema.ResolveOptions{Naming: d.Naming, LOBDefaults: d.LOBDefaults}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return m
}

func defaultEmitter() *Emitter {
	return New(OptionsFrom(config.Default()))
}

func TestTable(t *testing.T) {
	m := resolvedModel(t,
		[]string{"table", "T", "field", "ID", "type", "NUMBER", "size", "10", "not_null", "Y"},
		[]string{"table", "T", "field", "NAME", "type", "VARCHAR2", "size", "50", "units", "CHAR", "default", "x"},
		[]string{"table", "T", "field", "TOTAL", "type", "NUMBER", "invisible", "Y", "virtual", "Y", "virtual_expression", "ID + 1"},
	)
	got := defaultEmitter().Table(m.Table("T"))

	want := "prompt --Adding T table\n\n" +
		"CREATE TABLE T\n(\n" +
		"    ID                            NUMBER(10)                    NOT NULL,\n" +
		"    NAME                          VARCHAR2(50 CHAR)             DEFAULT 'x',\n" +
		"    TOTAL                         NUMBER                        INVISIBLE GENERATED ALWAYS AS (ID + 1) VIRTUAL\n" +
		");\n"
	if got.SQL != want {
		t.Errorf("Table() SQL =\n%s\nwant\n%s", got.SQL, want)
	}
	if got.Phase != build.PhaseTables || got.FileName() != "T.sql" {
		t.Errorf("artifact = %s %s", got.Phase, got.FileName())
	}
}

func TestTableVirtualNotNull(t *testing.T) {
	m := resolvedModel(t,
		[]string{"table", "T", "field", "A", "type", "NUMBER"},
		[]string{"table", "T", "field", "V", "type", "NUMBER", "not_null", "Y", "virtual", "Y", "virtual_expression", "A+B"},
	)
	got := defaultEmitter().Table(m.Table("T")).SQL
	if !strings.Contains(got, "GENERATED ALWAYS AS (A+B) VIRTUAL NOT NULL\n") {
		t.Errorf("Table() SQL =\n%s\nwant virtual column with NOT NULL", got)
	}
}

func TestTableLOB(t *testing.T) {
	m := resolvedModel(t,
		[]string{"schema", "APP_OWNER", "table", "DOC", "field", "ID", "type", "NUMBER"},
		[]string{"schema", "APP_OWNER", "table", "DOC", "field", "BODY", "type", "CLOB", "lob_deduplication", "N", "lob_caching", "Y"},
	)
	got := defaultEmitter().Table(m.Table("APP_OWNER.DOC")).SQL

	want := "LOB (BODY) STORE AS SECUREFILE (\n" +
		"    TABLESPACE APP\n" +
		"    ENABLE STORAGE IN ROW\n" +
		"    CHUNK 8192\n" +
		"    RETENTION\n" +
		"    KEEP_DUPLICATES\n" +
		"    COMPRESS MEDIUM\n" +
		"    CACHE\n" +
		"    LOGGING\n" +
		")\nTABLESPACE APP;\n"
	if !strings.HasSuffix(got, want) {
		t.Errorf("Table() SQL =\n%s\nwant suffix\n%s", got, want)
	}
	if !strings.Contains(got, "CREATE TABLE APP_OWNER.DOC\n") {
		t.Errorf("table name not qualified:\n%s", got)
	}
}

func TestKeys(t *testing.T) {
	m := resolvedModel(t,
		[]string{"table", "DEPT", "field", "ID", "type", "NUMBER", "primary_key", "Y"},
		[]string{"table", "EMPLOYEE", "field", "ID", "type", "NUMBER", "primary_key", "Y"},
		[]string{"table", "EMPLOYEE", "field", "EMAIL", "type", "VARCHAR2", "index", "U1"},
		[]string{"table", "EMPLOYEE", "field", "DEPT_CODE", "type", "VARCHAR2", "index", "U1", "fk_to_table", "DEPT", "fk_to_field", "ID"},
		[]string{"table", "EMPLOYEE", "field", "STATUS", "type", "CHAR", "index", "Y", "check_constraint", "IN ('A', 'I')"},
	)
	e := defaultEmitter()
	emp := m.Table("EMPLOYEE")

	pk, ok := e.PrimaryKey(emp)
	if !ok {
		t.Fatal("PrimaryKey() ok = false")
	}
	for _, want := range []string{
		"CREATE UNIQUE INDEX EMPLOYEE_PK ON EMPLOYEE\n    (ID);\n",
		"ALTER TABLE EMPLOYEE ADD (\n    CONSTRAINT EMPLOYEE_PK\n    PRIMARY KEY (ID)\n    USING INDEX EMPLOYEE_PK\n);\n",
	} {
		if !strings.Contains(pk.SQL, want) {
			t.Errorf("primary key SQL missing %q:\n%s", want, pk.SQL)
		}
	}
	if len(pk.Objects) != 2 {
		t.Errorf("primary key objects = %v", pk.Objects)
	}

	idx := e.Indexes(emp)
	if len(idx) != 2 {
		t.Fatalf("len(Indexes()) = %d, want 2", len(idx))
	}
	if !strings.Contains(idx[0].SQL, "CREATE UNIQUE INDEX EMPLOYEE_EMAIL_DEPT_CODE_UK ON EMPLOYEE\n    (EMAIL, DEPT_CODE);") ||
		!strings.Contains(idx[0].SQL, "UNIQUE (EMAIL, DEPT_CODE)") {
		t.Errorf("unique index SQL:\n%s", idx[0].SQL)
	}
	if !strings.Contains(idx[1].SQL, "CREATE INDEX EMPLOYEE_STATUS_IDX ON EMPLOYEE\n    (STATUS);") ||
		strings.Contains(idx[1].SQL, "CONSTRAINT") {
		t.Errorf("non-unique index SQL:\n%s", idx[1].SQL)
	}

	fks := e.ForeignKeys(emp)
	if len(fks) != 1 || !strings.Contains(fks[0].SQL, "FOREIGN KEY (DEPT_CODE)\n    REFERENCES DEPT (ID)\n") {
		t.Errorf("foreign keys = %+v", fks)
	}

	checks := e.Checks(emp)
	if len(checks) != 1 || !strings.Contains(checks[0].SQL, "CHECK (STATUS IN ('A', 'I'))") {
		t.Errorf("checks = %+v", checks)
	}

	if _, ok := e.PrimaryKey(&schema.Table{Name: "NOPK"}); ok {
		t.Error("PrimaryKey() ok = true for table without key")
	}
}

func TestSequences(t *testing.T) {
	m := resolvedModel(t,
		[]string{"table", "ORDERS", "field", "ID", "type", "NUMBER", "sequence_start", "ORDERS_SEQ", "pop_by_trigger", "N"},
		[]string{"table", "ORDERS", "field", "NO", "type", "NUMBER", "sequence_start", "1000", "pop_by_trigger", "Y", "sequence_cycle", "Y"},
	)
	e := defaultEmitter()
	orders := m.Table("ORDERS")

	seqs := e.Sequences(orders)
	if len(seqs) != 2 {
		t.Fatalf("len(Sequences()) = %d, want 2", len(seqs))
	}
	if !strings.Contains(seqs[0].SQL, "CREATE SEQUENCE ORDERS_ID_SEQ\n    START WITH ORDERS_SEQ\n") ||
		!strings.Contains(seqs[0].SQL, "NOCYCLE") {
		t.Errorf("textual start sequence:\n%s", seqs[0].SQL)
	}
	if !strings.Contains(seqs[1].SQL, "START WITH 1000\n") || !strings.Contains(seqs[1].SQL, "    CYCLE\n") {
		t.Errorf("cycling sequence:\n%s", seqs[1].SQL)
	}

	trgs := e.SequenceTriggers(orders)
	if len(trgs) != 1 {
		t.Fatalf("len(SequenceTriggers()) = %d, want 1 (only pop by trigger)", len(trgs))
	}
	want := "prompt --Adding ORDERS_NO_TRG trigger for ORDERS.NO\n\n" +
		"CREATE OR REPLACE TRIGGER ORDERS_NO_TRG\n" +
		"    BEFORE INSERT\n" +
		"    ON ORDERS REFERENCING NEW AS NEW OLD AS OLD\n" +
		"    FOR EACH ROW\n" +
		"    WHEN (new.NO IS NULL)\n" +
		"BEGIN\n" +
		"    :new.NO := ORDERS_NO_SEQ.nextval;\n" +
		"END ORDERS_NO_TRG;\n" +
		"/\n\nshow errors trigger ORDERS_NO_TRG\n"
	if trgs[0].SQL != want {
		t.Errorf("trigger SQL =\n%s\nwant\n%s", trgs[0].SQL, want)
	}
}

func TestSharedSequence(t *testing.T) {
	m := resolvedModel(t,
		[]string{"table", "A", "field", "ID", "type", "NUMBER", "sequence_start", "1", "sequence_name", "SHARED_SEQ"},
		[]string{"table", "B", "field", "ID", "type", "NUMBER", "sequence_start", "SHARED_SEQ", "sequence_name", "SHARED_SEQ", "pop_by_trigger", "Y"},
	)
	e := defaultEmitter()

	if got := e.Sequences(m.Table("A")); len(got) != 1 || got[0].Name != "SHARED_SEQ" {
		t.Errorf("Sequences(A) = %+v, want one SHARED_SEQ", got)
	}
	if got := e.Sequences(m.Table("B")); len(got) != 0 {
		t.Errorf("Sequences(B) = %d artifacts, want none", len(got))
	}
	trgs := e.SequenceTriggers(m.Table("B"))
	if len(trgs) != 1 || !strings.Contains(trgs[0].SQL, ":new.ID := SHARED_SEQ.nextval;") {
		t.Errorf("SequenceTriggers(B) = %+v, want trigger drawing from SHARED_SEQ", trgs)
	}
}

func TestAuditTrigger(t *testing.T) {
	m := resolvedModel(t,
		[]string{"table", "T", "field", "ID", "type", "NUMBER", "gen_audit_columns", "Y"},
		[]string{"table", "U", "field", "ID", "type", "NUMBER"},
	)
	e := defaultEmitter()

	a, ok := e.AuditTrigger(m.Table("T"))
	if !ok {
		t.Fatal("AuditTrigger() ok = false")
	}
	for _, want := range []string{"CREATE OR REPLACE TRIGGER T_BIU\n", "BEFORE INSERT OR UPDATE", ":new.U_DATE := SYSDATE;", ":new.U_NAME := USER;"} {
		if !strings.Contains(a.SQL, want) {
			t.Errorf("audit trigger missing %q:\n%s", want, a.SQL)
		}
	}
	if _, ok := e.AuditTrigger(m.Table("U")); ok {
		t.Error("AuditTrigger() ok = true for unaudited table")
	}
}

func TestCommentsAndGrants(t *testing.T) {
	m := resolvedModel(t,
		[]string{"table", "T", "field", "ID", "type", "NUMBER", "table_comment", "Owner's table", "column_comment", "Key"},
		[]string{"table", "T", "field", "X", "type", "NUMBER"},
	)
	e := defaultEmitter()

	c, ok := e.Comments(m.Table("T"))
	if !ok {
		t.Fatal("Comments() ok = false")
	}
	want := "prompt --Adding comments for T\n\n" +
		"COMMENT ON TABLE T IS 'Owner''s table';\n" +
		"COMMENT ON COLUMN T.ID IS 'Key';\n"
	if c.SQL != want {
		t.Errorf("Comments() SQL =\n%s\nwant\n%s", c.SQL, want)
	}

	grants := e.Grants([]schema.Grant{
		{Table: "T", Grantee: "APP", Privileges: []string{"INSERT", "UPDATE"}},
		{Table: "T", Grantee: "RPT"},
	})
	if len(grants) != 1 || grants[0].Name != "T_GRANTS" {
		t.Fatalf("Grants() = %+v", grants)
	}
	for _, want := range []string{"GRANT SELECT, INSERT, UPDATE ON T TO APP;\n", "GRANT SELECT ON T TO RPT;\n"} {
		if !strings.Contains(grants[0].SQL, want) {
			t.Errorf("grants SQL missing %q:\n%s", want, grants[0].SQL)
		}
	}
}

func TestHistoryStrategies(t *testing.T) {
	rows := [][]string{
		{"table", "ACCT", "field", "ID", "type", "NUMBER", "primary_key", "Y", "gen_history_table", "Y"},
		{"table", "ACCT", "field", "NAME", "type", "VARCHAR2", "size", "40"},
	}
	tests := []struct {
		name        string
		procedures  bool
		logging     bool
		support     int
		contains    []string
		notContains []string
	}{
		{
			name:        "inline",
			contains:    []string{"INSERT INTO H_ACCT", "'INSERT', :NEW.ID, :NEW.NAME", "'DELETE', :OLD.ID, :OLD.NAME"},
			notContains: []string{"LOGGING_UTL.LOG", "APP_HISTORY"},
		},
		{
			name:     "inline with logging",
			logging:  true,
			contains: []string{"EXCEPTION", "LOGGING_UTL.LOG('Error inserting into history table H_ACCT - Error: ' || sqlerrm, 'ACCT_H_INS_TRG');", "RAISE;"},
		},
		{
			name:        "procedure",
			procedures:  true,
			support:     2,
			contains:    []string{"CREATE OR REPLACE PACKAGE APP_HISTORY AS", "PROCEDURE P_H_ACCT_WRITE", "APP_HISTORY.P_H_ACCT_WRITE", "p_name_in", "raise_application_error(-20000, message_out);"},
			notContains: []string{"LOGGING_UTL.LOG", "GRANT EXECUTE"},
		},
		{
			name:       "procedure with logging",
			procedures: true,
			logging:    true,
			support:    2,
			contains:   []string{"LOGGING_UTL.LOG(message_out, 'APP_HISTORY.P_H_ACCT_WRITE');"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.HistoryTables.UseProcedures = tt.procedures
			cfg.HistoryTables.UseLogging = tt.logging
			e := New(OptionsFrom(cfg))
			if e.History().Name() != tt.name {
				t.Errorf("History().Name() = %q, want %q", e.History().Name(), tt.name)
			}

			m := resolvedModel(t, rows...)
			out := e.History().Emit([]*schema.Table{m.Table("ACCT")})
			if len(out.Support) != tt.support {
				t.Errorf("len(Support) = %d, want %d", len(out.Support), tt.support)
			}
			if len(out.Triggers) != 3 {
				t.Fatalf("len(Triggers) = %d, want 3", len(out.Triggers))
			}
			var names []string
			var all strings.Builder
			for _, a := range append(out.Support, out.Triggers...) {
				names = append(names, a.Name)
				all.WriteString(a.SQL)
			}
			for _, want := range []string{"ACCT_H_INS_TRG", "ACCT_H_UPD_TRG", "ACCT_H_DEL_TRG"} {
				if !strings.Contains(strings.Join(names, " "), want) {
					t.Errorf("missing trigger %s in %v", want, names)
				}
			}
			for _, want := range tt.contains {
				if !strings.Contains(all.String(), want) {
					t.Errorf("output missing %q:\n%s", want, all.String())
				}
			}
			for _, bad := range tt.notContains {
				if strings.Contains(all.String(), bad) {
					t.Errorf("output contains %q", bad)
				}
			}
		})
	}
}

func TestHistoryPackageGrant(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryTables.UseProcedures = true
	m := resolvedModel(t,
		[]string{"schema", "HR_OWNER", "table", "EMP", "field", "ID", "type", "NUMBER", "gen_history_table", "Y"},
	)
	out := New(OptionsFrom(cfg)).History().Emit([]*schema.Table{m.Table("HR_OWNER.EMP")})
	if len(out.Support) != 2 || out.Support[0].Name != "HR_HISTORY_SPEC" || out.Support[1].Name != "HR_HISTORY_BODY" {
		t.Fatalf("Support = %+v", out.Support)
	}
	if !strings.Contains(out.Support[0].SQL, "GRANT EXECUTE ON HR_OWNER.HR_HISTORY TO HR;") {
		t.Errorf("package spec missing execute grant:\n%s", out.Support[0].SQL)
	}
}

func TestModelOrder(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryTables.UseProcedures = true
	m := resolvedModel(t,
		[]string{"table", "EMP", "field", "ID", "type", "NUMBER", "primary_key", "Y", "gen_audit_columns", "Y", "gen_history_table", "Y"},
		[]string{"table", "EMP", "field", "DEPT_ID", "type", "NUMBER", "fk_to_table", "DEPT", "fk_to_field", "ID"},
		[]string{"table", "DEPT", "field", "ID", "type", "NUMBER", "primary_key", "Y"},
	)
	m.Grants = []schema.Grant{{Table: "EMP", Grantee: "APP"}}

	arts := New(OptionsFrom(cfg)).Model(m, []string{"DEPT", "EMP", "H_EMP"})

	var tables, triggers []string
	for _, a := range arts {
		switch a.Phase {
		case build.PhaseTables:
			tables = append(tables, a.Name)
		case build.PhaseTriggers:
			triggers = append(triggers, a.Name)
		}
		if a.Phase != build.PhaseTriggers && strings.Contains(a.SQL, "\n/\n") {
			t.Errorf("%s: plain DDL terminated with a slash", a.Name)
		}
	}
	if got := strings.Join(tables, " "); got != "DEPT EMP H_EMP" {
		t.Errorf("tables = %s", got)
	}
	wantTriggers := "APP_HISTORY_SPEC APP_HISTORY_BODY EMP_BIU H_EMP_HIST_ID_TRG EMP_H_INS_TRG EMP_H_UPD_TRG EMP_H_DEL_TRG"
	if got := strings.Join(triggers, " "); got != wantTriggers {
		t.Errorf("triggers = %s, want %s", got, wantTriggers)
	}
	if last := arts[len(arts)-1]; last.Phase != build.PhaseGrants {
		t.Errorf("last artifact phase = %s, want grants", last.Phase)
	}
}
