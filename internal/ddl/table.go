package ddl

import (
	"fmt"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// Table renders CREATE TABLE with one SECUREFILE clause per LOB column.
func (e *Emitter) Table(t *schema.Table) build.Artifact {
	f := e.f
	name := t.FullName()

	lines := make([]string, 0, len(t.Columns))
	var lobs []string
	for i := range t.Columns {
		c := &t.Columns[i]
		line := f.tab(1) + f.pad(c.Name)
		if opts := optionsString(c); opts != "" {
			line += f.pad(typeString(c)) + opts
		} else {
			line += typeString(c)
		}
		lines = append(lines, line)
		if c.LOB != nil {
			lobs = append(lobs, e.lobClause(c.Name, t.Tablespace, c.LOB))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "prompt --Adding %s table\n\n", name)
	fmt.Fprintf(&b, "CREATE TABLE %s\n(\n", name)
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	for _, l := range lobs {
		b.WriteString("\n" + l)
	}
	if t.Tablespace != "" {
		fmt.Fprintf(&b, "\nTABLESPACE %s", t.Tablespace)
	}
	b.WriteString(";\n")

	return build.Artifact{
		Phase:   build.PhaseTables,
		Name:    t.Name,
		Table:   name,
		SQL:     b.String(),
		Objects: []build.Object{{Kind: build.KindTable, Name: name}},
	}
}

func (e *Emitter) lobClause(column, tablespace string, lob *schema.LOB) string {
	tab := e.f.tab(1)

	dedup := "KEEP_DUPLICATES"
	if lob.Deduplicate {
		dedup = "DEDUPLICATE"
	}
	compress := "NOCOMPRESS"
	if lob.Compression != "" && lob.Compression != "N" {
		compress = "COMPRESS " + lob.Compression
	}
	cache := "NOCACHE"
	if lob.Cache {
		cache = "CACHE"
	}
	logging := "NOLOGGING"
	if lob.Logging {
		logging = "LOGGING"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "LOB (%s) STORE AS SECUREFILE (\n", column)
	if tablespace != "" {
		fmt.Fprintf(&b, "%sTABLESPACE %s\n", tab, tablespace)
	}
	fmt.Fprintf(&b, "%sENABLE STORAGE IN ROW\n", tab)
	fmt.Fprintf(&b, "%sCHUNK %d\n", tab, lob.Chunk)
	fmt.Fprintf(&b, "%sRETENTION\n", tab)
	for _, opt := range []string{dedup, compress, cache, logging} {
		fmt.Fprintf(&b, "%s%s\n", tab, opt)
	}
	b.WriteString(")")
	return b.String()
}
