// Package build orders emitted DDL artifacts into phases and renders the
// aggregate build.sql and clean.sql scripts.
package build

import (
	"fmt"
	"strings"
)

// Phase is one step of the build. Artifacts of a phase depend only on
// artifacts of earlier phases.
type Phase int

const (
	PhaseSequences Phase = iota
	PhaseTables
	PhasePrimaryKeys
	PhaseIndexes
	PhaseForeignKeys
	PhaseChecks
	PhaseComments
	PhaseTriggers
	PhaseGrants
)

// Phases lists every phase in build order.
var Phases = []Phase{
	PhaseSequences,
	PhaseTables,
	PhasePrimaryKeys,
	PhaseIndexes,
	PhaseForeignKeys,
	PhaseChecks,
	PhaseComments,
	PhaseTriggers,
	PhaseGrants,
}

var phaseNames = [...]string{
	PhaseSequences:   "sequences",
	PhaseTables:      "tables",
	PhasePrimaryKeys: "primary keys",
	PhaseIndexes:     "indexes",
	PhaseForeignKeys: "foreign keys",
	PhaseChecks:      "check constraints",
	PhaseComments:    "comments",
	PhaseTriggers:    "triggers",
	PhaseGrants:      "grants",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ObjectKind identifies what a created object is, which decides its drop.
type ObjectKind int

const (
	KindTable ObjectKind = iota
	KindSequence
	KindIndex
	KindConstraint
	KindTrigger
	KindPackage
	KindComment
	KindGrant
)

// Object is a database object created by an artifact.
type Object struct {
	Kind ObjectKind
	// Name is schema-qualified except for constraints, whose names are bare.
	Name string
	// Table is the qualified owning table of a constraint, comment or grant.
	Table string
	// Grantee and Privileges describe a grant.
	Grantee    string
	Privileges []string
}

// Drop returns the statement removing o, or "" when the object goes away
// with its table.
func (o Object) Drop() string {
	switch o.Kind {
	case KindTable:
		return fmt.Sprintf("DROP TABLE %s;", o.Name)
	case KindSequence:
		return fmt.Sprintf("DROP SEQUENCE %s;", o.Name)
	case KindIndex:
		return fmt.Sprintf("DROP INDEX %s;", o.Name)
	case KindConstraint:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", o.Table, o.Name)
	case KindTrigger:
		return fmt.Sprintf("DROP TRIGGER %s;", o.Name)
	case KindPackage:
		return fmt.Sprintf("DROP PACKAGE %s;", o.Name)
	case KindGrant:
		return fmt.Sprintf("REVOKE %s ON %s FROM %s;", strings.Join(o.Privileges, ", "), o.Table, o.Grantee)
	default:
		return ""
	}
}

// Artifact is one generated SQL file.
type Artifact struct {
	Phase Phase
	// Name is the file name without extension.
	Name string
	// Table is the qualified table the artifact belongs to, if any.
	Table   string
	SQL     string
	Objects []Object
}

// FileName returns the artifact's file name.
func (a Artifact) FileName() string {
	return a.Name + ".sql"
}
