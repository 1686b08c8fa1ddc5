// Package inbox imports data files dropped into a watched workspace folder.
package inbox

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dataforge/internal/checksum"
	"github.com/starford/dataforge/internal/importer"
	"github.com/starford/dataforge/internal/models"
	"github.com/starford/dataforge/internal/storage"
)

const defaultSettle = 200 * time.Millisecond

// Importer commits parsed files. dashservice.Service implements it.
type Importer interface {
	ImportData(ctx context.Context, f importer.File) (*models.DataSource, error)
}

// ImportCallback is called after each successful inbox import.
type ImportCallback func(path string, ds *models.DataSource)

// Watcher imports supported files created or rewritten under a workspace
// directory. A file is imported again only when its content changes.
type Watcher struct {
	files    storage.Provider
	imp      Importer
	dir      string // workspace-relative
	logger   *slog.Logger
	settle   time.Duration
	onImport ImportCallback

	seen map[string]string // path -> checksum of the last imported content
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithSettle sets how long a file must be quiet before it is imported.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithCallback sets the callback run after each import.
func WithCallback(cb ImportCallback) Option {
	return func(w *Watcher) { w.onImport = cb }
}

// New creates a Watcher for dir, relative to the workspace root of files.
func New(files storage.Provider, imp Importer, dir string, opts ...Option) *Watcher {
	w := &Watcher{
		files:  files,
		imp:    imp,
		dir:    dir,
		logger: slog.Default(),
		settle: defaultSettle,
		seen:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Scan imports every supported file already in the inbox. It must not run
// concurrently with Watch.
func (w *Watcher) Scan(ctx context.Context) error {
	infos, err := w.files.List(w.dir, importer.Supported)
	if err != nil {
		return err
	}
	for _, fi := range infos {
		w.importFile(ctx, fi.Path)
	}
	return nil
}

// Watch creates the inbox directory, imports what is already there and
// processes file events until ctx is cancelled. New subdirectories are
// watched as they appear.
func (w *Watcher) Watch(ctx context.Context) error {
	root, err := w.files.Abs(w.dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	base, err := w.files.Abs("")
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}
	w.logger.Info("inbox: started", slog.String("dir", root))

	if err := w.Scan(ctx); err != nil {
		w.logger.Warn("inbox: initial scan failed", slog.String("error", err.Error()))
	}

	// Files are imported once they have been quiet for the settle period,
	// so a copy in progress is read only when complete.
	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(w.settle)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(w.settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			w.logger.Info("inbox: stopped")
			return nil

		case <-settleCh:
			for rel := range pending {
				w.importFile(ctx, rel)
			}
			clear(pending)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			if strings.HasPrefix(filepath.Base(absPath), ".") {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, absPath); addErr != nil {
						w.logger.Warn("inbox: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					for _, rel := range supportedUnder(base, absPath) {
						schedule(rel)
					}
					continue
				}
			}

			if !importer.Supported(absPath) {
				continue
			}
			rel, relErr := filepath.Rel(base, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Forget the file so that putting it back imports it again.
				delete(w.seen, rel)
				delete(pending, rel)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// importFile reads and imports one file unless its content is unchanged
// since the last import. Failures are logged only.
func (w *Watcher) importFile(ctx context.Context, rel string) {
	data, err := w.files.Read(rel)
	if err != nil {
		w.logger.Warn("inbox: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	sum, changed := checksum.Changed(w.seen[rel], data)
	if !changed {
		return
	}
	abs, _ := w.files.Abs(rel)

	ds, err := w.imp.ImportData(ctx, importer.File{Name: filepath.Base(rel), Path: abs, Content: data})
	if err != nil {
		w.logger.Warn("inbox: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.seen[rel] = sum
	w.logger.Info("inbox: imported",
		slog.String("path", rel),
		slog.String("id", ds.ID),
		slog.Int("rows", len(ds.Rows)))
	if w.onImport != nil {
		w.onImport(rel, ds)
	}
}

// supportedUnder lists supported files below dir, relative to base.
func supportedUnder(base, dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !importer.Supported(path) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if rel, relErr := filepath.Rel(base, path); relErr == nil {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
