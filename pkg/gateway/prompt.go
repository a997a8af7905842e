package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Prompt holds the system prompt. When backed by a file it can be reloaded,
// either by hand or by Watch. It is safe for concurrent use.
type Prompt struct {
	mu   sync.RWMutex
	text string
	path string
	log  *slog.Logger
}

// NewPrompt returns a fixed prompt. Empty text means DefaultSystemPrompt.
func NewPrompt(text string) *Prompt {
	if strings.TrimSpace(text) == "" {
		text = DefaultSystemPrompt
	}
	return &Prompt{text: text, log: slog.Default()}
}

// LoadPrompt reads the prompt from path.
func LoadPrompt(path string, log *slog.Logger) (*Prompt, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &Prompt{path: path, log: log}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the current prompt.
func (p *Prompt) Get() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// Path returns the backing file, or "" for a fixed prompt.
func (p *Prompt) Path() string { return p.path }

// Reload rereads the backing file. On failure the previous prompt is kept.
func (p *Prompt) Reload() error {
	if p.path == "" {
		return nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("gateway: read system prompt: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("gateway: system prompt file %s is empty", p.path)
	}

	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
	return nil
}

// Watch reloads the prompt whenever its file changes, until ctx is done. The
// parent directory is watched so editors that replace the file on save are
// picked up too. Watch returns once the watcher is running; it is a no-op
// for a fixed prompt.
func (p *Prompt) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("gateway: watch system prompt: %w", err)
	}
	if err := w.Add(filepath.Dir(p.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("gateway: watch system prompt: %w", err)
	}

	go p.watch(ctx, w)
	return nil
}

func (p *Prompt) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()

	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := p.Reload(); err != nil {
				p.log.Warn("system prompt reload failed", "path", p.path, "error", err)
				continue
			}
			p.log.Info("system prompt reloaded", "path", p.path)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.log.Warn("system prompt watcher error", "error", err)
		}
	}
}
