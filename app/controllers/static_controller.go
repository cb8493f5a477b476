package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// AnalyticsPlaceholder is replaced in every HTML page.
const AnalyticsPlaceholder = "{{ANALYTICS_ID}}"

// StaticController serves the front end from a directory. Unknown paths
// fall back to index.html. HTML is cached with the analytics ID already
// substituted, and the cache entry is dropped whenever the file changes.
type StaticController struct {
	dir         string
	analyticsID string

	mutex   sync.RWMutex
	pages   map[string][]byte
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStaticController creates a new StaticController serving dir
func NewStaticController(dir, analyticsID string) (*StaticController, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static dir: %w", err)
	}
	sc := &StaticController{
		dir:         abs,
		analyticsID: analyticsID,
		pages:       make(map[string][]byte),
		done:        make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watchTree(watcher, abs); err != nil {
		watcher.Close()
		log.Printf("[static] not watching %s: %v", abs, err)
		return sc, nil
	}
	sc.watcher = watcher
	go sc.processEvents()
	return sc, nil
}

func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

// Close stops watching the static directory.
func (sc *StaticController) Close() error {
	if sc.watcher == nil {
		return nil
	}
	close(sc.done)
	return sc.watcher.Close()
}

func (sc *StaticController) processEvents() {
	for {
		select {
		case <-sc.done:
			return
		case event, ok := <-sc.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					sc.watcher.Add(event.Name)
				}
			}
			sc.invalidate(event.Name)
		case err, ok := <-sc.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[static] watcher error: %v", err)
		}
	}
}

func (sc *StaticController) invalidate(name string) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if _, ok := sc.pages[name]; ok {
		delete(sc.pages, name)
		log.Printf("[static] reloading %s", filepath.Base(name))
	}
}

// ServeHTTP serves a file, or index.html when nothing matches.
func (sc *StaticController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := filepath.Join(sc.dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	info, err := os.Stat(name)
	if err == nil && info.IsDir() {
		name = filepath.Join(name, "index.html")
		info, err = os.Stat(name)
	}
	if err != nil || info.IsDir() {
		name = filepath.Join(sc.dir, "index.html")
		if info, err = os.Stat(name); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	if !isHTML(name) {
		http.ServeFile(w, r, name)
		return
	}

	page, err := sc.page(name)
	if err != nil {
		log.Printf("[static] failed to read %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, info.Name(), info.ModTime(), bytes.NewReader(page))
}

func (sc *StaticController) page(name string) ([]byte, error) {
	sc.mutex.RLock()
	page, ok := sc.pages[name]
	sc.mutex.RUnlock()
	if ok {
		return page, nil
	}

	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	page = bytes.ReplaceAll(raw, []byte(AnalyticsPlaceholder), []byte(sc.analyticsID))

	// Without a watcher nothing would ever evict the entry.
	if sc.watcher != nil {
		sc.mutex.Lock()
		sc.pages[name] = page
		sc.mutex.Unlock()
	}
	return page, nil
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// ErrNoStaticDir is returned by CheckDir.
var ErrNoStaticDir = errors.New("static directory does not exist")

// CheckDir reports whether dir can be served.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoStaticDir, dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNoStaticDir, dir)
	}
	return nil
}
