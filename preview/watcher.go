package preview

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Watcher reports changes of individual files. Parent directories are
// watched since editors often save by rename.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	onChange func(path string)
	log      *zap.Logger
	done     chan struct{}
	stopped  chan struct{}
}

// NewWatcher starts watching files, empty names are ignored.
func NewWatcher(files []string, onChange func(string), log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		files:    make(map[string]bool, len(files)),
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	if len(w.files) == 0 {
		fsWatcher.Close()
		return nil, errors.New("nothing to watch")
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, err
		}
		log.Debug("Watching directory", zap.String("dir", dir))
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.stopped)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.files[name] {
				continue
			}
			w.log.Debug("File changed", zap.String("file", name), zap.Stringer("op", event.Op))
			w.onChange(name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

// Stop ends watching, onChange is not called after it returns.
func (w *Watcher) Stop() (err error) {
	close(w.done)
	err = multierr.Append(err, w.watcher.Close())
	<-w.stopped
	return err
}
