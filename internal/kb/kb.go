// Package kb maintains the on-disk knowledge base: a YAML catalogue of
// everything learned about each data source across runs (column types,
// quality history). Writes are atomic, serialized through a lock file,
// retried on contention, and preceded by a rotating backup.
package kb

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
)

const catalogueVersion = 1

// ColumnNote is what the knowledge base remembers about one column.
type ColumnNote struct {
	Type       model.ColumnType `yaml:"type"`
	Confidence float64          `yaml:"confidence"`
	NullRate   float64          `yaml:"null_rate"`
}

// Entry is the accumulated knowledge about one data source.
type Entry struct {
	Source         string                `yaml:"source"`
	Columns        map[string]ColumnNote `yaml:"columns"`
	LastAnalysisID string                `yaml:"last_analysis_id"`
	LastComposite  float64               `yaml:"last_composite"`
	RunCount       int                   `yaml:"run_count"`
	UpdatedAt      time.Time             `yaml:"updated_at"`
}

// Catalogue is the full on-disk document.
type Catalogue struct {
	Version int              `yaml:"version"`
	Entries map[string]Entry `yaml:"entries"`
}

// KB is a handle on one catalogue file.
type KB struct {
	path    string
	backups int
}

// ErrLocked is returned when another process holds the catalogue lock.
var ErrLocked = eris.New("kb: catalogue is locked")

// Open returns a handle for the catalogue at path, creating parent
// directories as needed. backups is how many rotated copies to keep.
func Open(path string, backups int) (*KB, error) {
	if path == "" {
		return nil, eris.New("kb: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "kb: create directory")
	}
	if backups < 0 {
		backups = 0
	}
	return &KB{path: path, backups: backups}, nil
}

// Load reads the catalogue; a missing file yields an empty catalogue.
func (k *KB) Load() (*Catalogue, error) {
	data, err := os.ReadFile(k.path)
	if os.IsNotExist(err) {
		return &Catalogue{Version: catalogueVersion, Entries: map[string]Entry{}}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "kb: read catalogue")
	}

	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, eris.Wrap(err, "kb: parse catalogue")
	}
	if cat.Entries == nil {
		cat.Entries = map[string]Entry{}
	}
	return &cat, nil
}

// Record folds one finished analysis into the catalogue and persists it.
func (k *KB) Record(a *model.Analysis) error {
	unlock, err := k.lock()
	if err != nil {
		return err
	}
	defer unlock()

	cat, err := k.Load()
	if err != nil {
		return err
	}

	entry := cat.Entries[a.Source]
	entry.Source = a.Source
	if entry.Columns == nil {
		entry.Columns = make(map[string]ColumnNote, len(a.Columns))
	}
	for _, col := range a.Columns {
		entry.Columns[col.Name] = ColumnNote{
			Type:       col.Type,
			Confidence: col.Confidence,
			NullRate:   col.NullPercent / 100,
		}
	}
	entry.LastAnalysisID = a.ID
	entry.LastComposite = a.Quality.Composite
	entry.RunCount++
	entry.UpdatedAt = time.Now().UTC()
	cat.Entries[a.Source] = entry

	return k.save(cat)
}

// Get returns the entry for source, or nil when unknown.
func (k *KB) Get(source string) (*Entry, error) {
	cat, err := k.Load()
	if err != nil {
		return nil, err
	}
	entry, ok := cat.Entries[source]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// List returns all entries sorted by source.
func (k *KB) List() ([]Entry, error) {
	cat, err := k.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(cat.Entries))
	for _, e := range cat.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

// Forget removes one source from the catalogue. Removing an unknown
// source is not an error.
func (k *KB) Forget(source string) error {
	unlock, err := k.lock()
	if err != nil {
		return err
	}
	defer unlock()

	cat, err := k.Load()
	if err != nil {
		return err
	}
	if _, ok := cat.Entries[source]; !ok {
		return nil
	}
	delete(cat.Entries, source)
	return k.save(cat)
}

// save writes the catalogue atomically: rotate backups, marshal to a
// temp file in the same directory, then rename over the target.
func (k *KB) save(cat *Catalogue) error {
	cat.Version = catalogueVersion

	if err := k.rotateBackups(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cat)
	if err != nil {
		return eris.Wrap(err, "kb: marshal catalogue")
	}

	tmp, err := os.CreateTemp(filepath.Dir(k.path), ".kb-*.yaml")
	if err != nil {
		return eris.Wrap(err, "kb: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "kb: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "kb: close temp file")
	}
	if err := os.Rename(tmpName, k.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "kb: replace catalogue")
	}
	return nil
}

// rotateBackups shifts kb.yaml → kb.yaml.1 → … → kb.yaml.N, dropping
// the oldest.
func (k *KB) rotateBackups() error {
	if k.backups <= 0 {
		return nil
	}
	if _, err := os.Stat(k.path); os.IsNotExist(err) {
		return nil
	}

	oldest := k.path + "." + strconv.Itoa(k.backups)
	os.Remove(oldest)
	for i := k.backups - 1; i >= 1; i-- {
		from := k.path + "." + strconv.Itoa(i)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, k.path+"."+strconv.Itoa(i+1)); err != nil {
				return eris.Wrap(err, "kb: rotate backup")
			}
		}
	}
	if err := copyFile(k.path, k.path+".1"); err != nil {
		return eris.Wrap(err, "kb: backup catalogue")
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// lock takes the catalogue lock file. A stale lock older than a minute
// is broken, covering crashed writers.
func (k *KB) lock() (func(), error) {
	lockPath := k.path + ".lock"
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, eris.Wrap(err, "kb: take lock")
		}
		info, statErr := os.Stat(lockPath)
		if statErr == nil && time.Since(info.ModTime()) > time.Minute {
			os.Remove(lockPath)
			continue
		}
		return nil, eris.Wrapf(ErrLocked, "%s", lockPath)
	}
}
