package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level YAML configuration.
type Config struct {
	Files         Files         `yaml:"files"`
	Naming        Naming        `yaml:"naming"`
	HistoryTables HistoryTables `yaml:"history_tables"`
	Logging       Logging       `yaml:"logging"`
	CleanScript   *bool         `yaml:"clean_script"`
	Formatting    Formatting    `yaml:"formatting"`
	LOBDefaults   LOBDefaults   `yaml:"lob_defaults"`
	// Tablespace overrides the tablespace derived from each table's schema.
	Tablespace string `yaml:"tablespace"`
}

// Files holds input/output locations.
type Files struct {
	OutputDirectory string      `yaml:"output_directory"`
	SchemaFile      string      `yaml:"schema_file"`
	GrantsFile      string      `yaml:"grants_file"`
	BuildFile       string      `yaml:"build_file"`
	CleanFile       string      `yaml:"clean_file"`
	Encoding        string      `yaml:"encoding"`
	Directories     Directories `yaml:"directories"`
}

// Directories names the output subdirectory of each build phase.
type Directories struct {
	Sequences        string `yaml:"sequences"`
	Tables           string `yaml:"tables"`
	PrimaryKeys      string `yaml:"primary_keys"`
	Indexes          string `yaml:"indexes"`
	ForeignKeys      string `yaml:"foreign_keys"`
	CheckConstraints string `yaml:"check_constraints"`
	Comments         string `yaml:"comments"`
	Triggers         string `yaml:"triggers"`
	Grants           string `yaml:"grants"`
}

// Naming holds object name patterns. Placeholders: {schema}, {table},
// {column}, {columns}.
type Naming struct {
	PrimaryKey string `yaml:"primary_key"`
	Index      string `yaml:"index"`
	Unique     string `yaml:"unique"`
	ForeignKey string `yaml:"foreign_key"`
	Check      string `yaml:"check"`
	Sequence   string `yaml:"sequence"`
}

// HistoryTables selects how history tables are populated.
type HistoryTables struct {
	UseProcedures    bool   `yaml:"use_procedures"`
	UseLogging       bool   `yaml:"use_logging"`
	LoggingProcedure string `yaml:"logging_procedure"`
}

// Logging configures the application log.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Formatting controls SQL layout.
type Formatting struct {
	SplitOn         int `yaml:"split_on"`
	TableMinSpacing int `yaml:"table_min_spacing"`
	Indent          int `yaml:"indent"`
}

// LOBDefaults are applied to LOB columns that leave an option blank.
type LOBDefaults struct {
	Deduplication string `yaml:"deduplication"`
	Compression   string `yaml:"compression"`
	Caching       string `yaml:"caching"`
	Logging       string `yaml:"logging"`
	Chunk         int    `yaml:"chunk"`
}

// Default returns the built-in configuration.
func Default() *Config {
	clean := true
	return &Config{
		Files: Files{
			OutputDirectory: "output",
			SchemaFile:      "Schema.csv",
			GrantsFile:      "Grants.csv",
			BuildFile:       "build.sql",
			CleanFile:       "clean.sql",
			Encoding:        "utf-8",
			Directories: Directories{
				Sequences:        "SEQUENCES",
				Tables:           "TABLES",
				PrimaryKeys:      "PRIMARY_KEYS",
				Indexes:          "INDEXES",
				ForeignKeys:      "REF_CONSTRAINTS",
				CheckConstraints: "CHECK_CONSTRAINTS",
				Comments:         "COMMENTS",
				Triggers:         "TRIGGERS",
				Grants:           "GRANTS",
			},
		},
		Naming: Naming{
			PrimaryKey: "{table}_PK",
			Index:      "{table}_{columns}_IDX",
			Unique:     "{table}_{columns}_UK",
			ForeignKey: "{table}_{column}_FK",
			Check:      "{table}_{column}_CK",
			Sequence:   "{table}_{column}_SEQ",
		},
		HistoryTables: HistoryTables{
			LoggingProcedure: "LOGGING_UTL.LOG",
		},
		Logging:     Logging{Level: "INFO"},
		CleanScript: &clean,
		Formatting: Formatting{
			SplitOn:         100,
			TableMinSpacing: 30,
			Indent:          4,
		},
		LOBDefaults: LOBDefaults{
			Deduplication: "Y",
			Compression:   "MEDIUM",
			Caching:       "N",
			Logging:       "Y",
			Chunk:         8192,
		},
	}
}

// Load reads and parses a YAML config file. A missing file is not an error:
// every field then comes from the environment or the built-in defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// applyEnv fills in empty fields from environment variables.
// YAML values take precedence; env vars are used only as fallback.
func (c *Config) applyEnv() {
	if c.Files.OutputDirectory == "" {
		c.Files.OutputDirectory = envOr("ORAGEN_OUTPUT_DIR")
	}
	if c.Files.SchemaFile == "" {
		c.Files.SchemaFile = envOr("ORAGEN_SCHEMA_FILE")
	}
	if c.Files.GrantsFile == "" {
		c.Files.GrantsFile = envOr("ORAGEN_GRANTS_FILE")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = envOr("ORAGEN_LOG_LEVEL")
	}
	if c.Formatting.SplitOn == 0 {
		if s := envOr("ORAGEN_SPLIT_ON"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				c.Formatting.SplitOn = n
			}
		}
	}
}

// envOr returns the first non-empty value from the given env var names.
func envOr(names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// validate checks option values and fills unset fields with defaults.
func (c *Config) validate() error {
	d := Default()

	fillStr(&c.Files.OutputDirectory, d.Files.OutputDirectory)
	fillStr(&c.Files.SchemaFile, d.Files.SchemaFile)
	fillStr(&c.Files.GrantsFile, d.Files.GrantsFile)
	fillStr(&c.Files.BuildFile, d.Files.BuildFile)
	fillStr(&c.Files.CleanFile, d.Files.CleanFile)
	if strings.ContainsAny(c.Files.BuildFile+c.Files.CleanFile, `/\`) {
		return fmt.Errorf("files.build_file and files.clean_file must be plain file names")
	}
	switch strings.ToLower(c.Files.Encoding) {
	case "":
		c.Files.Encoding = d.Files.Encoding
	case "utf-8", "utf8", "windows-1252", "cp1252":
	default:
		return fmt.Errorf("files.encoding %q is not supported (utf-8, windows-1252)", c.Files.Encoding)
	}
	c.Files.Directories.fill(d.Files.Directories)
	c.Naming.fill(d.Naming)

	if c.HistoryTables.LoggingProcedure == "" {
		c.HistoryTables.LoggingProcedure = d.HistoryTables.LoggingProcedure
	}
	if c.CleanScript == nil {
		c.CleanScript = d.CleanScript
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "":
		c.Logging.Level = d.Logging.Level
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("logging.level %q is not one of DEBUG, INFO, WARN, ERROR", c.Logging.Level)
	}

	if c.Formatting.SplitOn <= 0 {
		c.Formatting.SplitOn = d.Formatting.SplitOn
	}
	if c.Formatting.TableMinSpacing <= 0 {
		c.Formatting.TableMinSpacing = d.Formatting.TableMinSpacing
	}
	if c.Formatting.Indent <= 0 {
		c.Formatting.Indent = d.Formatting.Indent
	}

	return c.LOBDefaults.validate(d.LOBDefaults)
}

func (l *LOBDefaults) validate(d LOBDefaults) error {
	for _, f := range []struct {
		name string
		val  *string
		def  string
	}{
		{"deduplication", &l.Deduplication, d.Deduplication},
		{"caching", &l.Caching, d.Caching},
		{"logging", &l.Logging, d.Logging},
	} {
		*f.val = strings.ToUpper(strings.TrimSpace(*f.val))
		switch *f.val {
		case "":
			*f.val = f.def
		case "Y", "N":
		default:
			return fmt.Errorf("lob_defaults.%s must be Y or N, got %q", f.name, *f.val)
		}
	}

	l.Compression = strings.ToUpper(strings.TrimSpace(l.Compression))
	switch l.Compression {
	case "":
		l.Compression = d.Compression
	case "N", "LOW", "MEDIUM", "HIGH":
	default:
		return fmt.Errorf("lob_defaults.compression must be N, LOW, MEDIUM or HIGH, got %q", l.Compression)
	}

	if l.Chunk <= 0 {
		l.Chunk = d.Chunk
	}
	return nil
}

func (d *Directories) fill(def Directories) {
	fillStr(&d.Sequences, def.Sequences)
	fillStr(&d.Tables, def.Tables)
	fillStr(&d.PrimaryKeys, def.PrimaryKeys)
	fillStr(&d.Indexes, def.Indexes)
	fillStr(&d.ForeignKeys, def.ForeignKeys)
	fillStr(&d.CheckConstraints, def.CheckConstraints)
	fillStr(&d.Comments, def.Comments)
	fillStr(&d.Triggers, def.Triggers)
	fillStr(&d.Grants, def.Grants)
}

func (n *Naming) fill(def Naming) {
	fillStr(&n.PrimaryKey, def.PrimaryKey)
	fillStr(&n.Index, def.Index)
	fillStr(&n.Unique, def.Unique)
	fillStr(&n.ForeignKey, def.ForeignKey)
	fillStr(&n.Check, def.Check)
	fillStr(&n.Sequence, def.Sequence)
}

func fillStr(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

// CleanEnabled reports whether clean.sql should be generated.
func (c *Config) CleanEnabled() bool {
	return c.CleanScript == nil || *c.CleanScript
}
