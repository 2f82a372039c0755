package ddl

import (
	"fmt"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// format holds layout helpers shared by the emitters.
type format struct {
	opts Options
}

// tab returns n levels of indentation.
func (f format) tab(n int) string {
	return strings.Repeat(" ", f.opts.Indent*n)
}

// pad left-aligns s in a column of TableMinSpacing, keeping at least two
// spaces after values that overflow it.
func (f format) pad(s string) string {
	if len(s) >= f.opts.TableMinSpacing {
		return s + "  "
	}
	return s + strings.Repeat(" ", f.opts.TableMinSpacing-len(s))
}

// wrap joins items with ", " and starts a new line, indented by prefix,
// whenever the current line has reached SplitOn characters.
func (f format) wrap(items []string, prefix string) string {
	var b strings.Builder
	lineLen := 0
	for i, it := range items {
		if i > 0 {
			if lineLen >= f.opts.SplitOn {
				b.WriteString("\n" + prefix + ", ")
				lineLen = len(prefix) + 2
			} else {
				b.WriteString(", ")
				lineLen += 2
			}
		} else {
			b.WriteString(prefix)
			lineLen = len(prefix)
		}
		b.WriteString(it)
		lineLen += len(it)
	}
	return b.String()
}

// typeString renders a column type with its size and units.
func typeString(c *schema.Column) string {
	if c.Size == nil {
		return c.Type
	}
	switch {
	case c.IsCharacter() && c.Units != "":
		return fmt.Sprintf("%s(%d %s)", c.Type, c.Size.Length, c.Units)
	case c.Size.HasScale:
		return fmt.Sprintf("%s(%d,%d)", c.Type, c.Size.Length, c.Size.Scale)
	default:
		return fmt.Sprintf("%s(%d)", c.Type, c.Size.Length)
	}
}

// optionsString renders the modifiers following a column type.
func optionsString(c *schema.Column) string {
	var parts []string
	if c.Invisible {
		parts = append(parts, "INVISIBLE")
	}
	if c.Virtual {
		parts = append(parts, fmt.Sprintf("GENERATED ALWAYS AS (%s) VIRTUAL", c.VirtualExpr))
		if c.NotNull {
			parts = append(parts, "NOT NULL")
		}
		return strings.Join(parts, " ")
	}
	if c.Default != "" {
		parts = append(parts, "DEFAULT "+c.Default)
	}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

func qualify(schemaName, name string) string {
	return schema.Qualify(schemaName, name)
}

// plsqlEnd closes a PL/SQL unit for SQL*Plus and reports compile errors.
func plsqlEnd(kind, name string) string {
	return fmt.Sprintf("/\n\nshow errors %s %s\n", kind, name)
}
