package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ResolutionsFile is the name of the resolutions document that lives next
// to the migration files.
const ResolutionsFile = "resolutions.toml"

// Dir is a loaded migration directory. Three layouts are read: a
// subdirectory per migration holding migration.sql (or an up/down pair),
// flat <id>.sql files with a down marker, and flat <id>.up.sql/<id>.down.sql
// pairs. New files are written in the flat single-file form.
//
// Files are ordered lexicographically by id; ids are unique or loading
// fails.
type Dir struct {
	path  string
	files []*File
}

// OpenDir loads the migration directory at path, creating it when absent.
func OpenDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("prax: opening migration directory: %w", err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("prax: reading migration directory: %w", err)
	}
	d := &Dir{path: path}
	pairs := make(map[string]*File)
	record := func(f *File) error {
		if slices.ContainsFunc(d.files, func(e *File) bool { return e.ID == f.ID }) {
			return &DuplicateIDError{ID: f.ID}
		}
		d.files = append(d.files, f)
		return nil
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		switch {
		case entry.IsDir():
			f, ok, err := readMigrationDir(filepath.Join(path, name), name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if err := record(f); err != nil {
				return nil, err
			}
		case strings.HasSuffix(name, ".up.sql"), strings.HasSuffix(name, ".down.sql"):
			id, isDown := strings.CutSuffix(name, ".down.sql")
			if !isDown {
				id, _ = strings.CutSuffix(name, ".up.sql")
			}
			section, err := os.ReadFile(filepath.Join(path, name))
			if err != nil {
				return nil, fmt.Errorf("prax: reading migration %s: %w", name, err)
			}
			f := pairs[id]
			if f == nil {
				f = &File{ID: id, Name: nameOf(id)}
				pairs[id] = f
			}
			if isDown {
				f.DownSQL = canonical(string(section))
			} else {
				f.UpSQL = canonical(string(section))
			}
		case strings.HasSuffix(name, ".sql"):
			id, _ := strings.CutSuffix(name, ".sql")
			content, err := os.ReadFile(filepath.Join(path, name))
			if err != nil {
				return nil, fmt.Errorf("prax: reading migration %s: %w", name, err)
			}
			up, downSQL := ParseSQL(string(content))
			if err := record(NewFile(id, nameOf(id), up, downSQL)); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range pairs {
		f.Checksum = Checksum(f.UpSQL)
		if err := record(f); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(d.files, func(a, b *File) int { return strings.Compare(a.ID, b.ID) })
	return d, nil
}

// readMigrationDir loads one subdirectory-form migration. Directories
// holding no migration.sql variant are skipped, so unrelated subdirectories
// do not break loading.
func readMigrationDir(path, id string) (*File, bool, error) {
	if content, err := os.ReadFile(filepath.Join(path, "migration.sql")); err == nil {
		up, down := ParseSQL(string(content))
		return NewFile(id, nameOf(id), up, down), true, nil
	}
	up, upErr := os.ReadFile(filepath.Join(path, "migration.up.sql"))
	if upErr != nil {
		return nil, false, nil
	}
	down, _ := os.ReadFile(filepath.Join(path, "migration.down.sql"))
	return NewFile(id, nameOf(id), string(up), string(down)), true, nil
}

// nameOf derives the human name from an id: the slug after the timestamp,
// or the id itself when there is none.
func nameOf(id string) string {
	if _, slug := SplitID(id); slug != "" {
		return slug
	}
	return id
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Files returns the migrations in id order.
func (d *Dir) Files() []*File {
	return slices.Clone(d.files)
}

// File returns the migration with the given id.
func (d *Dir) File(id string) (*File, bool) {
	for _, f := range d.files {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// WriteFile writes f in the single-file form and adds it to the directory.
func (d *Dir) WriteFile(f *File) error {
	if _, ok := d.File(f.ID); ok {
		return &DuplicateIDError{ID: f.ID}
	}
	if err := os.WriteFile(filepath.Join(d.path, f.ID+".sql"), []byte(f.Render()), 0o644); err != nil {
		return fmt.Errorf("prax: writing migration %s: %w", f.ID, err)
	}
	i, _ := slices.BinarySearchFunc(d.files, f, func(a, b *File) int { return strings.Compare(a.ID, b.ID) })
	d.files = slices.Insert(d.files, i, f)
	return nil
}

// Generate diffs into a new migration file: the DDL for the given diff
// under the given dialect, an id stamped with the current time, and the
// slug of name. Empty diffs return ErrNoChanges and write nothing.
func (d *Dir) Generate(dialect, name string, diff *SchemaDiff) (*File, error) {
	return d.generateAt(dialect, name, diff, time.Now())
}

func (d *Dir) generateAt(dialect, name string, diff *SchemaDiff, now time.Time) (*File, error) {
	if diff == nil || diff.Empty() {
		return nil, ErrNoChanges
	}
	up, down, err := DDL(dialect, diff)
	if err != nil {
		return nil, err
	}
	f := NewFile(NewID(name, now), Slugify(name), up, down)
	if err := d.WriteFile(f); err != nil {
		return nil, err
	}
	return f, nil
}

// ResolutionsPath returns the path of the sibling resolutions document.
func (d *Dir) ResolutionsPath() string {
	return filepath.Join(d.path, ResolutionsFile)
}

// LoadResolutions reads the sibling resolutions document. A missing file is
// an empty resolution set, not an error.
func (d *Dir) LoadResolutions() (*Resolutions, error) {
	return LoadResolutions(d.ResolutionsPath())
}
