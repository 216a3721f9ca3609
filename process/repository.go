package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/casualjim/roost/pkg/slogx"
)

var (
	ErrFrameworkNotFound = errors.New("framework not found")
	ErrProcessNotFound   = errors.New("process not found")
	ErrActivityNotFound  = errors.New("activity not found")
	ErrNoStorage         = errors.New("repository has no storage directory")
)

// LoadReport summarizes a Load call.
type LoadReport struct {
	Loaded  []string          `json:"loaded"`
	Skipped map[string]string `json:"skipped,omitempty"`
}

type entry struct {
	framework *Framework
	index     index
}

// Repository keeps frameworks in memory, optionally backed by a directory of
// JSON documents. It is safe for concurrent use.
type Repository struct {
	dir string

	mu         sync.RWMutex
	frameworks map[string]entry
}

// NewRepository creates a repository persisting to dir. An empty dir gives a
// memory-only repository.
func NewRepository(dir string) *Repository {
	return &Repository{
		dir:        dir,
		frameworks: make(map[string]entry),
	}
}

// Dir returns the storage directory.
func (r *Repository) Dir() string { return r.dir }

// Load reads every *.json document of the storage directory. Documents that
// fail to decode or validate are logged and skipped. A missing directory is
// created and yields an empty report.
func (r *Repository) Load(ctx context.Context) (LoadReport, error) {
	report := LoadReport{Skipped: map[string]string{}}
	if r.dir == "" {
		return report, nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return report, fmt.Errorf("failed to create storage directory: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(r.dir, "*.json"))
	if err != nil {
		return report, fmt.Errorf("failed to scan storage directory: %w", err)
	}
	slices.Sort(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fw, err := readFile(path)
		if err == nil {
			err = r.Add(fw)
		}
		if err != nil {
			slog.WarnContext(ctx, "skipping framework document", slog.String("path", path), slogx.Error(err))
			report.Skipped[filepath.Base(path)] = err.Error()
			continue
		}
		report.Loaded = append(report.Loaded, fw.ID)
	}
	slog.InfoContext(ctx, "frameworks loaded",
		slog.String("dir", r.dir),
		slog.Int("loaded", len(report.Loaded)),
		slog.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func readFile(path string) (*Framework, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// Add validates fw, indexes it and makes it available, replacing a framework
// with the same id. The repository keeps its own copy, fw is never modified.
func (r *Repository) Add(fw *Framework) error {
	_, err := r.add(fw)
	return err
}

func (r *Repository) add(fw *Framework) (*Framework, error) {
	if fw == nil {
		return nil, fmt.Errorf("%w: nil framework", ErrInvalidFramework)
	}
	owned, err := fw.clone()
	if err != nil {
		return nil, err
	}
	idx, err := owned.validate()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.frameworks[owned.ID] = entry{framework: owned, index: idx}
	r.mu.Unlock()
	return owned, nil
}

// Save adds fw and writes it to "<framework_id>.json" in the storage directory.
func (r *Repository) Save(fw *Framework) error {
	if r.dir == "" {
		return ErrNoStorage
	}
	if fw != nil && strings.ContainsAny(fw.ID, `/\`) {
		return fmt.Errorf("%w %s: id can't be used as a file name", ErrInvalidFramework, fw.ID)
	}
	owned, err := r.add(fw)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, owned); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	path := r.path(fw.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write framework %s: %w", fw.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write framework %s: %w", fw.ID, err)
	}
	return nil
}

// Delete removes a framework from memory and from the storage directory.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.frameworks[id]
	delete(r.frameworks, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameworkNotFound, id)
	}
	if r.dir == "" {
		return nil
	}
	if err := os.Remove(r.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete framework %s: %w", id, err)
	}
	return nil
}

func (r *Repository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

// Framework returns a framework by id.
func (r *Repository) Framework(id string) (*Framework, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.frameworks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFrameworkNotFound, id)
	}
	return e.framework, nil
}

// Frameworks returns all frameworks sorted by id.
func (r *Repository) Frameworks() []*Framework {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Framework, 0, len(r.frameworks))
	for _, e := range r.frameworks {
		out = append(out, e.framework)
	}
	slices.SortFunc(out, func(a, b *Framework) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Process finds a process anywhere in a framework's tree.
func (r *Repository) Process(frameworkID, processID string) (*Process, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.frameworks[frameworkID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFrameworkNotFound, frameworkID)
	}
	p, ok := e.index.processes[processID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrProcessNotFound, frameworkID, processID)
	}
	return p, nil
}

// Activity finds an activity anywhere in a framework's tree.
func (r *Repository) Activity(frameworkID, activityID string) (*Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.frameworks[frameworkID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFrameworkNotFound, frameworkID)
	}
	act, ok := e.index.activities[activityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrActivityNotFound, frameworkID, activityID)
	}
	return act, nil
}
