package musicio

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// ConfigWatcher reloads the config file when it changes on disk.
// The directory is watched, editors often replace the file with a rename.
type ConfigWatcher struct {
	MU       sync.Mutex
	Path     string
	OnChange func(ConfigFile)
	Debounce time.Duration
	Reloads  int
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	stopped  bool
	stopChan chan struct{}
	WG       sync.WaitGroup
}

func NewConfigWatcher(path string, onChange func(ConfigFile)) *ConfigWatcher {
	return &ConfigWatcher{
		Path:     filepath.Clean(path),
		OnChange: onChange,
		Debounce: reloadDebounce,
	}
}

// Start begins watching, an empty Path is a no-op
func (cw *ConfigWatcher) Start() error {
	if cw.Path == "" || cw.Path == "." {
		slog.Info("Config watcher disabled, no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(cw.Path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	cw.watcher = watcher
	cw.stopChan = make(chan struct{})
	cw.WG.Add(1)
	go cw.watchLoop()

	slog.Info("Watching config file for changes", slog.String("path", cw.Path))
	return nil
}

func (cw *ConfigWatcher) watchLoop() {
	defer cw.WG.Done()
	for {
		select {
		case <-cw.stopChan:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				slog.Debug("Config file changed", slog.String("op", event.Op.String()))
				cw.schedule()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", slog.Any("error", err))
		}
	}
}

// schedule resets the debounce timer on each event
func (cw *ConfigWatcher) schedule() {
	cw.MU.Lock()
	defer cw.MU.Unlock()
	if cw.stopped {
		return
	}
	if cw.timer != nil && cw.timer.Stop() {
		cw.WG.Done()
	}
	cw.WG.Add(1)
	cw.timer = time.AfterFunc(cw.Debounce, func() {
		defer cw.WG.Done()
		if err := cw.Reload(); err != nil {
			slog.Error("Automatic config reload failed", slog.Any("error", err))
		}
	})
}

// Reload reads the file and hands it to OnChange.
// A bad file is reported and the running settings stay as they are.
func (cw *ConfigWatcher) Reload() error {
	cf, err := LoadConfigFileName(cw.Path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	cf.ApplyEnv()

	cw.MU.Lock()
	cw.Reloads++
	cw.MU.Unlock()

	if cw.OnChange != nil {
		cw.OnChange(cf)
	}
	slog.Info("Configuration reloaded",
		slog.String("mix_mode", cf.MixMode),
		slog.Int("tempo", cf.Tempo))
	return nil
}

// Stop ends the watch loop and any pending reload
func (cw *ConfigWatcher) Stop() {
	if cw.watcher == nil {
		return
	}
	close(cw.stopChan)
	_ = cw.watcher.Close()

	cw.MU.Lock()
	cw.stopped = true
	if cw.timer != nil && cw.timer.Stop() {
		cw.WG.Done()
	}
	cw.MU.Unlock()

	cw.WG.Wait()
	cw.watcher = nil
}
