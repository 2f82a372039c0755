package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hurou927/ora-schema-gen/internal/config"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

const schemaCSV = `Schema,Table,Field,Type,Size,Units,Not Null,Primary Key,Default,Index,Sequence Start,Pop by Trigger,FK to Table,FK to Field,Gen Audit Columns,Gen History Table,Table Comment,Column Comment
,EMPLOYEE,ID,NUMBER,10,,Y,Y,,,1,Y,,,Y,Y,Staff,Employee key
,EMPLOYEE,EMAIL,VARCHAR2,120,CHAR,Y,,,U1,,,,,,,,
,EMPLOYEE,DEPT_CODE,VARCHAR2,10,CHAR,,,,U1,,,DEPT,CODE,,,,
,,,,,,,,,,,,,,,,,
,DEPT,CODE,VARCHAR2,10,CHAR,Y,Y,,,,,,,,,Departments,
,DEPT,NAME,VARCHAR2,80,CHAR,,,,,,,,,,,,
`

const grantsCSV = `Schema,Table,Grantee,Insert,Update,Delete
,EMPLOYEE,HR_APP,X,X,
,DEPT,HR_APP,,,
`

// setup writes the inputs into a temp dir and returns a config using it.
func setup(t *testing.T, schemaBody, grantsBody string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Files.OutputDirectory = filepath.Join(dir, "output")
	cfg.Files.SchemaFile = filepath.Join(dir, "Schema.csv")
	cfg.Files.GrantsFile = filepath.Join(dir, "Grants.csv")

	if err := os.WriteFile(cfg.Files.SchemaFile, []byte(schemaBody), 0o644); err != nil {
		t.Fatal(err)
	}
	if grantsBody != "" {
		if err := os.WriteFile(cfg.Files.GrantsFile, []byte(grantsBody), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func readOutput(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Files.OutputDirectory, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

func TestRun(t *testing.T) {
	cfg := setup(t, schemaCSV, grantsCSV)
	gen := New(cfg, nil, false)

	plan, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, rel := range []string{
		"SEQUENCES/EMPLOYEE_ID_SEQ.sql",
		"SEQUENCES/H_EMPLOYEE_HIST_ID_SEQ.sql",
		"TABLES/DEPT.sql",
		"TABLES/EMPLOYEE.sql",
		"TABLES/H_EMPLOYEE.sql",
		"PRIMARY_KEYS/EMPLOYEE_PK.sql",
		"INDEXES/EMPLOYEE_EMAIL_DEPT_CODE_UK.sql",
		"REF_CONSTRAINTS/EMPLOYEE_DEPT_CODE_FK.sql",
		"COMMENTS/EMPLOYEE_COMMENTS.sql",
		"TRIGGERS/EMPLOYEE_ID_TRG.sql",
		"TRIGGERS/EMPLOYEE_BIU.sql",
		"TRIGGERS/EMPLOYEE_H_INS_TRG.sql",
		"GRANTS/EMPLOYEE_GRANTS.sql",
		"GRANTS/DEPT_GRANTS.sql",
	} {
		readOutput(t, cfg, rel)
	}

	build := readOutput(t, cfg, "build.sql")
	dept := strings.Index(build, "@TABLES/DEPT.sql")
	emp := strings.Index(build, "@TABLES/EMPLOYEE.sql")
	if dept < 0 || emp < 0 || dept > emp {
		t.Errorf("DEPT must be created before EMPLOYEE:\n%s", build)
	}
	if strings.Index(build, "@SEQUENCES/") > strings.Index(build, "@TABLES/") {
		t.Errorf("sequences must precede tables:\n%s", build)
	}

	clean := readOutput(t, cfg, "clean.sql")
	if !strings.Contains(clean, "DROP TABLE EMPLOYEE;") ||
		strings.Index(clean, "DROP TABLE EMPLOYEE;") > strings.Index(clean, "DROP SEQUENCE EMPLOYEE_ID_SEQ;") {
		t.Errorf("clean script order:\n%s", clean)
	}
	if !strings.Contains(clean, "REVOKE SELECT, INSERT, UPDATE ON EMPLOYEE FROM HR_APP;") {
		t.Errorf("clean script missing revoke:\n%s", clean)
	}

	table := readOutput(t, cfg, "TABLES/EMPLOYEE.sql")
	for _, col := range []string{"U_NAME", "U_DATE"} {
		if !strings.Contains(table, col) {
			t.Errorf("audit column %s missing:\n%s", col, table)
		}
	}
	if len(plan.Files) == 0 || len(gen.Summary()) == 0 {
		t.Error("empty plan or summary")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := setup(t, schemaCSV, grantsCSV)

	first, err := New(cfg, nil, false).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(cfg.Files.OutputDirectory, "STALE.sql")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := New(cfg, nil, false).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Files) != len(second.Files) {
		t.Fatalf("file count changed: %d vs %d", len(first.Files), len(second.Files))
	}
	for i := range first.Files {
		if first.Files[i].Path != second.Files[i].Path || first.Files[i].Digest() != second.Files[i].Digest() {
			t.Errorf("file %d differs between runs: %s", i, first.Files[i].Path)
		}
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale file survived the second run")
	}
}

func TestRunWithoutGrantsFile(t *testing.T) {
	cfg := setup(t, schemaCSV, "")
	plan, err := New(cfg, nil, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, f := range plan.Files {
		if strings.HasPrefix(f.Path, "GRANTS/") {
			t.Errorf("unexpected grant file %s", f.Path)
		}
	}
}

func TestRunMalformedRow(t *testing.T) {
	body := "Table,Field,Type,Not Null\nT,ID,NUMBER,maybe\n"
	cfg := setup(t, body, "")

	_, err := New(cfg, nil, false).Run(context.Background())
	var mre *schema.MalformedRowError
	if !errors.As(err, &mre) {
		t.Fatalf("Run() error = %v, want MalformedRowError", err)
	}
	if mre.Line != 2 {
		t.Errorf("Line = %d, want 2", mre.Line)
	}

	entries, err := os.ReadDir(cfg.Files.OutputDirectory)
	if err != nil {
		t.Fatalf("output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("output written despite failure: %d entries", len(entries))
	}
}

func TestRunDuplicateColumn(t *testing.T) {
	body := "Table,Field,Type\nT,ID,NUMBER\nT,ID,DATE\n"
	cfg := setup(t, body, "")

	_, err := New(cfg, nil, false).Run(context.Background())
	var dup *schema.DuplicateEntityError
	if !errors.As(err, &dup) || dup.Line != 3 {
		t.Errorf("Run() error = %v, want duplicate column at line 3", err)
	}
}

func TestRunDryRun(t *testing.T) {
	cfg := setup(t, schemaCSV, grantsCSV)
	plan, err := New(cfg, nil, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(plan.Files) == 0 {
		t.Error("dry run produced no plan")
	}
	if _, err := os.Stat(cfg.Files.OutputDirectory); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dry run touched the output directory: %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	cfg := setup(t, schemaCSV, grantsCSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(cfg, nil, true).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunMissingSchemaFile(t *testing.T) {
	cfg := setup(t, schemaCSV, "")
	cfg.Files.SchemaFile += ".missing"
	_, err := New(cfg, nil, true).Run(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Run() error = %v, want not-exist", err)
	}
}
