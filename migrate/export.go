package migrate

import (
	"fmt"
	"os"
	"strings"

	atlas "ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/sqltool"
)

// ExportFormat names a migration-directory layout understood by other
// migration tools.
type ExportFormat string

const (
	FormatAtlas         ExportFormat = "atlas"
	FormatGolangMigrate ExportFormat = "golang-migrate"
	FormatGoose         ExportFormat = "goose"
	FormatDBMate        ExportFormat = "dbmate"
	FormatFlyway        ExportFormat = "flyway"
	FormatLiquibase     ExportFormat = "liquibase"
)

func formatterFor(format ExportFormat) (atlas.Formatter, error) {
	switch format {
	case FormatAtlas:
		return atlas.DefaultFormatter, nil
	case FormatGolangMigrate:
		return sqltool.GolangMigrateFormatter, nil
	case FormatGoose:
		return sqltool.GooseFormatter, nil
	case FormatDBMate:
		return sqltool.DBMateFormatter, nil
	case FormatFlyway:
		return sqltool.FlywayFormatter, nil
	case FormatLiquibase:
		return sqltool.LiquibaseFormatter, nil
	default:
		return nil, fmt.Errorf("prax: unknown export format %q", format)
	}
}

// planChanges maps a migration file onto formatter changes: one change
// per up statement, semicolons stripped the way the formatters expect.
// When the down script mirrors the up statement for statement, each change
// carries its own reverse; otherwise the whole down script rides on the
// first change.
func planChanges(f *File) []*atlas.Change {
	ups := Statements(f.UpSQL)
	downs := Statements(f.DownSQL)
	changes := make([]*atlas.Change, len(ups))
	for i, stmt := range ups {
		changes[i] = &atlas.Change{Cmd: trimStmt(stmt)}
	}
	if len(changes) == 0 || len(downs) == 0 {
		return changes
	}
	if len(downs) == len(ups) {
		for i := range changes {
			changes[i].Reverse = trimStmt(downs[len(downs)-1-i])
		}
		return changes
	}
	reverse := make([]string, len(downs))
	for i, stmt := range downs {
		reverse[i] = trimStmt(stmt)
	}
	changes[0].Reverse = strings.Join(reverse, ";\n")
	return changes
}

func trimStmt(stmt string) string {
	return strings.TrimSuffix(strings.TrimSpace(stmt), ";")
}

// Export renders every migration in d into an ecosystem migration tree at
// path. The atlas format also maintains the checksum file other atlas
// tooling validates against.
func Export(d *Dir, path string, format ExportFormat) error {
	f, err := formatterFor(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("prax: creating export directory %s: %w", path, err)
	}
	dir, err := atlas.NewLocalDir(path)
	if err != nil {
		return fmt.Errorf("prax: opening export directory %s: %w", path, err)
	}
	opts := []atlas.PlannerOption{atlas.PlanFormat(f)}
	if format != FormatAtlas {
		opts = append(opts, atlas.PlanWithChecksum(false))
	}
	planner := atlas.NewPlanner(nil, dir, opts...)
	for _, m := range d.Files() {
		version, name := SplitID(m.ID)
		if name == "" {
			name = nameOf(m.ID)
		}
		plan := &atlas.Plan{Version: version, Name: name, Changes: planChanges(m)}
		if err := planner.WritePlan(plan); err != nil {
			return fmt.Errorf("prax: exporting migration %s: %w", m.ID, err)
		}
	}
	return nil
}

// ImportAtlas reads an atlas-format migration directory, validates its
// checksum file, and converts each migration into a prax file. Down
// sections are recognized when the source carries them inline.
func ImportAtlas(path string) ([]*File, error) {
	dir, err := atlas.NewLocalDir(path)
	if err != nil {
		return nil, fmt.Errorf("prax: opening atlas directory %s: %w", path, err)
	}
	if err := atlas.Validate(dir); err != nil {
		return nil, fmt.Errorf("prax: validating atlas directory %s: %w", path, err)
	}
	list, err := dir.Files()
	if err != nil {
		return nil, fmt.Errorf("prax: reading atlas directory %s: %w", path, err)
	}
	files := make([]*File, 0, len(list))
	for _, af := range list {
		id := af.Version()
		if desc := af.Desc(); desc != "" {
			id += "_" + Slugify(desc)
		}
		up, down := ParseSQL(string(af.Bytes()))
		files = append(files, NewFile(id, nameOf(id), up, down))
	}
	return files, nil
}
