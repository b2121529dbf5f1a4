// internal/server/server.go
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"lectern/internal/builder"
	"lectern/internal/ctxlog"
)

// BuildFunc rebuilds the whole site.
type BuildFunc func(ctx context.Context, opts builder.BuildOptions) error

// Options configures the development server.
type Options struct {
	Port       int
	OutputDir  string
	WatchPaths []string // directories and files; missing ones are skipped
	Build      builder.BuildOptions
}

const debounceDuration = 500 * time.Millisecond

// Run builds the site, serves the output directory with live reload, and
// rebuilds when anything under WatchPaths changes. It returns when ctx is
// cancelled or the listener fails.
func Run(ctx context.Context, opts Options, buildFunc BuildFunc) error {
	log := ctxlog.FromContext(ctx)

	buildOpts := opts.Build
	buildOpts.CleanDestination = true
	if err := buildFunc(ctx, buildOpts); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	hub := newReloadHub(log)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchPaths(ctx, watcher, opts.WatchPaths); err != nil {
		return err
	}

	buildOpts.CleanDestination = false
	go watchForChanges(ctx, watcher, hub, buildFunc, buildOpts)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/", withLiveReload(http.FileServer(http.Dir(opts.OutputDir))))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.close()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Serving site on http://localhost%s\n", srv.Addr)
	fmt.Println("Press Ctrl+C to stop")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// watchPaths adds every directory under the given paths to the watcher.
// Files are watched through their parent directory, which also catches
// editors that save by renaming a swap file.
func watchPaths(ctx context.Context, watcher *fsnotify.Watcher, paths []string) error {
	log := ctxlog.FromContext(ctx)
	watched := make(map[string]bool)
	addWatch := func(dir string) {
		dir = filepath.Clean(dir)
		if watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			log.Error("could not watch directory", "dir", dir, "err", err)
			return
		}
		log.Debug("watching directory", "dir", dir)
		watched[dir] = true
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("could not stat path %s: %w", p, err)
		}
		if !info.IsDir() {
			addWatch(filepath.Dir(p))
			continue
		}
		if err := filepath.WalkDir(p, func(walkPath string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				addWatch(walkPath)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", p, err)
		}
	}
	return nil
}

func watchForChanges(ctx context.Context, watcher *fsnotify.Watcher, hub *reloadHub, buildFunc BuildFunc, opts builder.BuildOptions) {
	log := ctxlog.FromContext(ctx)
	var lastBuildTime time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			// New lecture directories need a watch of their own.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.Error("could not watch new directory", "dir", event.Name, "err", err)
					}
				}
			}
			if time.Since(lastBuildTime) <= debounceDuration {
				continue
			}
			time.Sleep(100 * time.Millisecond)

			log.Info("change detected, rebuilding", "path", event.Name)
			if err := buildFunc(ctx, opts); err != nil {
				log.Error("rebuild failed", "err", err)
			} else {
				log.Info("site rebuilt, triggering reload")
				hub.reload()
			}
			lastBuildTime = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "err", err)
		}
	}
}

// withLiveReload serves next with caching disabled and, for HTML pages,
// the reload script added before </body>.
func withLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")

		// Lecture URLs are directories ("/lecture-notes/pointers"), so
		// anything without an extension may be a page.
		if ext := path.Ext(r.URL.Path); ext != "" && ext != ".html" {
			next.ServeHTTP(w, r)
			return
		}

		page := &bufferedPage{header: h, status: http.StatusOK}
		next.ServeHTTP(page, r)

		body := page.body.Bytes()
		if page.status == http.StatusOK && strings.HasPrefix(h.Get("Content-Type"), "text/html") {
			body = injectReloadScript(body)
			h.Set("Content-Length", strconv.Itoa(len(body)))
		}
		w.WriteHeader(page.status)
		_, _ = w.Write(body)
	})
}

// injectReloadScript puts the script before the last </body>, or at the end
// of pages that have none.
func injectReloadScript(page []byte) []byte {
	i := bytes.LastIndex(page, []byte("</body>"))
	if i < 0 {
		i = len(page)
	}
	out := make([]byte, 0, len(page)+len(liveReloadScript))
	out = append(out, page[:i]...)
	out = append(out, liveReloadScript...)
	return append(out, page[i:]...)
}

// bufferedPage holds a response until the reload script can be added. It
// shares the real writer's header map.
type bufferedPage struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (p *bufferedPage) Header() http.Header { return p.header }

func (p *bufferedPage) Write(b []byte) (int, error) { return p.body.Write(b) }

func (p *bufferedPage) WriteHeader(status int) { p.status = status }

const liveReloadScript = `
<script>
  (function() {
    let socket = new WebSocket("ws://" + window.location.host + "/ws");
    socket.onmessage = function(event) {
      if (event.data === "reload") {
        window.location.reload();
      }
    };
    socket.onerror = function() {
      console.error("Live reload connection error. Please restart 'lectern serve'.");
    };
  })();
</script>
`
