package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	d := Default()
	if cfg.Files != d.Files {
		t.Errorf("Files = %+v, want %+v", cfg.Files, d.Files)
	}
	if cfg.Naming != d.Naming {
		t.Errorf("Naming = %+v, want %+v", cfg.Naming, d.Naming)
	}
	if cfg.LOBDefaults != d.LOBDefaults {
		t.Errorf("LOBDefaults = %+v, want %+v", cfg.LOBDefaults, d.LOBDefaults)
	}
	if !cfg.CleanEnabled() {
		t.Error("CleanEnabled() = false, want true")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
files:
  output_directory: out
  encoding: windows-1252
  directories:
    tables: TBL
naming:
  primary_key: PK_{table}
history_tables:
  use_procedures: true
clean_script: false
formatting:
  split_on: 60
lob_defaults:
  compression: high
  caching: y
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"output dir", cfg.Files.OutputDirectory, "out"},
		{"encoding", cfg.Files.Encoding, "windows-1252"},
		{"tables dir", cfg.Files.Directories.Tables, "TBL"},
		{"sequences dir default", cfg.Files.Directories.Sequences, "SEQUENCES"},
		{"pk pattern", cfg.Naming.PrimaryKey, "PK_{table}"},
		{"index pattern default", cfg.Naming.Index, "{table}_{columns}_IDX"},
		{"procedures", cfg.HistoryTables.UseProcedures, true},
		{"logging procedure default", cfg.HistoryTables.LoggingProcedure, "LOGGING_UTL.LOG"},
		{"clean", cfg.CleanEnabled(), false},
		{"split on", cfg.Formatting.SplitOn, 60},
		{"indent default", cfg.Formatting.Indent, 4},
		{"compression", cfg.LOBDefaults.Compression, "HIGH"},
		{"caching", cfg.LOBDefaults.Caching, "Y"},
		{"chunk default", cfg.LOBDefaults.Chunk, 8192},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv("ORAGEN_OUTPUT_DIR", "from-env")
	t.Setenv("ORAGEN_SCHEMA_FILE", "env.csv")
	t.Setenv("ORAGEN_LOG_LEVEL", "DEBUG")
	t.Setenv("ORAGEN_SPLIT_ON", "80")

	path := writeConfig(t, "files:\n  schema_file: yaml.csv\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Files.OutputDirectory != "from-env" {
		t.Errorf("OutputDirectory = %q, want from-env", cfg.Files.OutputDirectory)
	}
	if cfg.Files.SchemaFile != "yaml.csv" {
		t.Errorf("SchemaFile = %q, yaml value should win over env", cfg.Files.SchemaFile)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
	}
	if cfg.Formatting.SplitOn != 80 {
		t.Errorf("SplitOn = %d, want 80", cfg.Formatting.SplitOn)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad yaml", "files: [", "parsing config file"},
		{"encoding", "files:\n  encoding: latin9\n", "files.encoding"},
		{"build file with dir", "files:\n  build_file: sub/build.sql\n", "plain file names"},
		{"log level", "logging:\n  level: LOUD\n", "logging.level"},
		{"lob flag", "lob_defaults:\n  caching: maybe\n", "lob_defaults.caching"},
		{"lob compression", "lob_defaults:\n  compression: ultra\n", "lob_defaults.compression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	if err := Default().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Files != Default().Files {
		t.Errorf("Files = %+v after round trip", cfg.Files)
	}
}
