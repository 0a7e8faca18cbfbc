package migrate

import "fmt"

// Mismatch is a migration whose file checksum disagrees with the history.
type Mismatch struct {
	ID       string
	Expected string // checksum recorded in history
	Actual   string // checksum computed from the file
}

// ResolutionSnippet returns a resolutions.toml entry that would accept the
// drift, ready to paste after review.
func (m *Mismatch) ResolutionSnippet() string {
	return fmt.Sprintf(
		"[resolutions.%q]\nreason = \"...\"\ncreated_at = ...\n\n[resolutions.%q.action]\ntype = %q\nfrom_checksum = %q\nto_checksum = %q\n",
		m.ID, m.ID, ActionAcceptChecksum, m.Expected, m.Actual,
	)
}

// Plan is the outcome of reconciling the migration directory against the
// history under the resolution protocol.
type Plan struct {
	// Pending holds files not yet applied, in id order.
	Pending []*File
	// Skipped holds ids suppressed by skip resolutions.
	Skipped []string
	// Baselined holds files to record as applied without executing.
	Baselined []*File
	// Resolved holds checksum drifts covered by an accept_checksum entry.
	Resolved []*Mismatch
	// Unresolved holds checksum drifts with no resolution in force.
	Unresolved []*Mismatch
	// Diff carries the schema drift when the plan was built with schemas.
	Diff *SchemaDiff
}

// Empty reports whether applying the plan would change nothing.
func (p *Plan) Empty() bool {
	return len(p.Pending) == 0 && len(p.Baselined) == 0
}

// Summary returns the one-line counts rendering of the plan.
func (p *Plan) Summary() string {
	return fmt.Sprintf(
		"%d pending, %d skipped, %d baselined, %d resolved, %d unresolved",
		len(p.Pending), len(p.Skipped), len(p.Baselined), len(p.Resolved), len(p.Unresolved),
	)
}
