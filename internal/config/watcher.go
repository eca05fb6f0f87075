package config

import (
	"context"
	"os"
	"time"
)

// Watcher polls a config file and reports validated changes.
// Only settings that can change at runtime are acted upon by callers
// (sync interval, notification TTL); the rest need a restart.
type Watcher struct {
	path     string
	interval time.Duration
	debounce time.Duration
	onChange func(old, new *Config)
	onError  func(err error)

	modTime time.Time
	size    int64
	current *Config
}

// WatcherConfig holds config watcher configuration.
type WatcherConfig struct {
	FilePath     string
	PollInterval time.Duration // Default: 500ms
	Debounce     time.Duration // Default: 200ms
	OnChange     func(old, new *Config)
	// OnError receives load and validation failures. Optional.
	OnError func(err error)
}

// NewWatcher creates a watcher primed with the file's current contents.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.FilePath == "" {
		return nil, ErrMissingConfigFile
	}
	if cfg.OnChange == nil {
		return nil, ErrMissingOnChange
	}

	info, err := os.Stat(cfg.FilePath)
	if err != nil {
		return nil, err
	}
	current, err := LoadConfig(cfg.FilePath)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     cfg.FilePath,
		interval: cfg.PollInterval,
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		onError:  cfg.OnError,
		modTime:  info.ModTime(),
		size:     info.Size(),
		current:  current,
	}
	if w.interval <= 0 {
		w.interval = 500 * time.Millisecond
	}
	if w.debounce <= 0 {
		w.debounce = 200 * time.Millisecond
	}
	if w.onError == nil {
		w.onError = func(error) {}
	}
	return w, nil
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var debounceCh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.changed() {
				debounceCh = time.After(w.debounce)
			}
		case <-debounceCh:
			debounceCh = nil
			w.reload()
		}
	}
}

// Current returns the last successfully loaded config.
// It must only be called from the goroutine running Run, or before Run starts.
func (w *Watcher) Current() *Config {
	return w.current
}

func (w *Watcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return false
	}
	w.modTime = info.ModTime()
	w.size = info.Size()
	return true
}

func (w *Watcher) reload() {
	next, err := LoadConfig(w.path)
	if err != nil {
		w.onError(err)
		return
	}
	if errs := ValidateConfig(next); len(errs) > 0 {
		w.onError(errs[0])
		return
	}

	old := w.current
	w.current = next
	w.onChange(old, next)
}
