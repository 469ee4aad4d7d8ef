package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

const (
	entityMapFile        = "entity_map.json"
	solutionEntitiesFile = "solution_entities.json"
	fieldsDir            = "fields"
	fieldFileSuffix      = "_fields.json"
)

// ErrNoSolutionEntities is returned when the solution listing has not been
// fetched yet.
var ErrNoSolutionEntities = errors.New("solution entities not fetched; run catalog sync first")

// Store reads and writes the persisted catalog files under a directory.
// Missing entity maps and field files load as empty; they are only produced
// by an explicit sync.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the catalog root.
func (s *Store) Dir() string { return s.dir }

// FieldFilePath returns the path of the field file for table.
func (s *Store) FieldFilePath(table string) string {
	return filepath.Join(s.dir, fieldsDir, table+fieldFileSuffix)
}

// LoadEntityMap reads entity_map.json, returning an empty map when the file
// does not exist.
func (s *Store) LoadEntityMap() (*EntityMap, error) {
	em := NewEntityMap()
	if err := s.readJSON(filepath.Join(s.dir, entityMapFile), em); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("entity map not found", zap.String("dir", s.dir))
			return NewEntityMap(), nil
		}
		return nil, err
	}
	return em, nil
}

// SaveEntityMap writes entity_map.json.
func (s *Store) SaveEntityMap(em *EntityMap) error {
	return s.writeJSON(filepath.Join(s.dir, entityMapFile), em)
}

// LoadSolutionEntities reads the cached solution listing.
func (s *Store) LoadSolutionEntities() ([]EntityInfo, error) {
	var entities []EntityInfo
	if err := s.readJSON(filepath.Join(s.dir, solutionEntitiesFile), &entities); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSolutionEntities
		}
		return nil, err
	}
	return entities, nil
}

// SaveSolutionEntities writes the solution listing.
func (s *Store) SaveSolutionEntities(entities []EntityInfo) error {
	return s.writeJSON(filepath.Join(s.dir, solutionEntitiesFile), entities)
}

// LoadFieldFile reads the field file for table, returning an empty file when
// it does not exist.
func (s *Store) LoadFieldFile(table string) (*FieldFile, error) {
	if table == "" {
		return NewFieldFile(nil), nil
	}
	ff := NewFieldFile(nil)
	if err := s.readJSON(s.FieldFilePath(table), ff); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("field file not found", zap.String("table", table))
			return NewFieldFile(nil), nil
		}
		return nil, err
	}
	return ff, nil
}

// SaveFieldFile replaces the field file for table with cols.
func (s *Store) SaveFieldFile(table string, cols []ColumnDescriptor) error {
	return s.writeJSON(s.FieldFilePath(table), NewFieldFile(cols))
}

// FieldMap loads the field file for table and derives its field map.
func (s *Store) FieldMap(table string) (*FieldMap, error) {
	ff, err := s.LoadFieldFile(table)
	if err != nil {
		return nil, err
	}
	return ff.FieldMap(), nil
}

// Tables lists the tables that have a cached field file, sorted by name.
func (s *Store) Tables() ([]string, error) {
	pattern := path.Join(fieldsDir, "*"+fieldFileSuffix)
	matches, err := doublestar.Glob(os.DirFS(s.dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("listing field files: %w", err)
	}
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, strings.TrimSuffix(path.Base(m), fieldFileSuffix))
	}
	sort.Strings(tables)
	return tables, nil
}

func (s *Store) readJSON(p string, v any) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", p, err)
	}
	return nil
}

func (s *Store) writeJSON(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", p, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", p, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}
