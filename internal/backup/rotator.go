// Package backup keeps a bounded set of dated copies of the dataset file.
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-stats-service/internal/observability"
)

// DefaultRetain is the number of backups kept per directory.
const DefaultRetain = 5

// Result describes what a rotation did.
type Result struct {
	Created string   // path of the backup written, empty when the source was missing
	Pruned  []string // backups deleted, oldest first
}

// Rotator copies a source file to <Dir>/<Prefix>YYYYMMDD.csv and deletes the
// oldest <Prefix>*.csv files so that at most Retain remain.
type Rotator struct {
	dir     string
	prefix  string
	retain  int
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRotator creates a Rotator. A retain below 1 means DefaultRetain.
func NewRotator(dir, prefix string, retain int, metrics *observability.Metrics, logger *slog.Logger) *Rotator {
	if retain < 1 {
		retain = DefaultRetain
	}
	return &Rotator{
		dir:     dir,
		prefix:  prefix,
		retain:  retain,
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// SetClock replaces the clock used to date backups.
func (r *Rotator) SetClock(c clockwork.Clock) { r.clock = c }

// Rotate backs up src. A missing src is not an error and leaves existing
// backups alone. src itself is never modified.
func (r *Rotator) Rotate(src string) (Result, error) {
	var res Result

	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("dataset not found, skipping backup", "path", src)
		return res, nil
	} else if err != nil {
		return res, fmt.Errorf("stat %s: %w", src, err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return res, fmt.Errorf("create backup dir: %w", err)
	}

	target := filepath.Join(r.dir, r.prefix+r.clock.Now().Format("20060102")+".csv")

	existing, err := r.List()
	if err != nil {
		return res, err
	}

	// Today's backup is overwritten in place, so only the others count
	// against the limit.
	others := make([]string, 0, len(existing))
	for _, p := range existing {
		if p != target {
			others = append(others, p)
		}
	}

	for len(others) > r.retain-1 {
		oldest := others[0]
		if err := os.Remove(oldest); err != nil {
			return res, fmt.Errorf("delete old backup: %w", err)
		}
		r.logger.Info("deleted oldest backup", "path", oldest)
		res.Pruned = append(res.Pruned, oldest)
		others = others[1:]
	}

	if err := copyFile(src, target); err != nil {
		return res, err
	}
	res.Created = target
	r.logger.Info("backup created", "path", target)

	if r.metrics != nil {
		r.metrics.BackupsCreated.Inc()
		r.metrics.BackupsPruned.Add(float64(len(res.Pruned)))
	}
	return res, nil
}

// List returns the backups in the directory, oldest first.
func (r *Rotator) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, r.prefix) || filepath.Ext(name) != ".csv" {
			continue
		}
		paths = append(paths, filepath.Join(r.dir, name))
	}
	// YYYYMMDD suffixes sort chronologically.
	sort.Strings(paths)
	return paths, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp backup: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}
