package source

import (
	"encoding/csv"
	"fmt"
	"os"
)

// SchemaHeaders are the columns of the schema template, in sheet order.
var SchemaHeaders = []string{
	"Schema",
	"Table",
	"Field",
	"Type",
	"Size",
	"Units",
	"Not Null",
	"Primary Key",
	"Default",
	"Index",
	"Sequence Start",
	"Sequence Name",
	"Sequence Cycle",
	"Pop by Trigger",
	"Invisible",
	"Virtual",
	"Virtual Expression",
	"Check Constraint",
	"LOB Deduplication",
	"LOB Compression (N, LOW, MEDIUM, HIGH)",
	"LOB Caching",
	"LOB Logging",
	"FK to Table",
	"FK to Field",
	"Gen Audit Columns",
	"Gen History Table",
	"Table Comment",
	"Column Comment",
}

// GrantHeaders are the columns of the grants template. Columns after
// Grantee are privileges; mark a cell with X to include it.
var GrantHeaders = []string{
	"Schema",
	"Table",
	"Grantee",
	"Insert",
	"Update",
	"Delete",
}

// WriteTemplate creates a CSV file holding only the header row.
func WriteTemplate(path string, headers []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}
