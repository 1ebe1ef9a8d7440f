package inbox

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceTick   = 250 * time.Millisecond
	debounceSettle = 300 * time.Millisecond
)

// Watch processes files as they appear until ctx is cancelled. A file is
// handed to the workers once no event has touched it for debounceSettle.
// User directories created while watching are picked up automatically.
func (p *Processor) Watch(ctx context.Context) error {
	if err := os.MkdirAll(p.opts.Root, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(p.opts.Root); err != nil {
		return err
	}
	entries, err := os.ReadDir(p.opts.Root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != ProcessedDir {
			if err := w.Add(filepath.Join(p.opts.Root, e.Name())); err != nil {
				return err
			}
		}
	}
	p.log.Info("Watching inbox (debounced)", "root", p.opts.Root)

	jobs := make(chan job, 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.runWorkers(ctx, jobs)
	}()

	err = p.debounce(ctx, w, jobs)
	close(jobs)
	<-done
	return err
}

func (p *Processor) debounce(ctx context.Context, w *fsnotify.Watcher, jobs chan<- job) error {
	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			dir, name := filepath.Split(ev.Name)
			if filepath.Clean(dir) == filepath.Clean(p.opts.Root) {
				// a new user directory
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() && name != ProcessedDir {
					if err := w.Add(ev.Name); err != nil {
						p.log.Warn("Cannot watch user directory", "dir", ev.Name, "error", err)
						continue
					}
					for _, f := range listImageFiles(ev.Name) {
						pending[filepath.Join(ev.Name, f)] = time.Now()
					}
				}
				continue
			}
			if isSupportedExt(name) {
				pending[ev.Name] = time.Now()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("Watch error", "error", err)
		case now := <-ticker.C:
			for path, t := range pending {
				if now.Sub(t) < debounceSettle {
					continue
				}
				delete(pending, path)
				j := job{username: filepath.Base(filepath.Dir(path)), name: filepath.Base(path)}
				select {
				case jobs <- j:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
