package routes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"skymock/app/config"
	"skymock/app/controllers"
	"skymock/app/export"
	"skymock/app/ingest"
	"skymock/app/middleware"
	"skymock/app/picker"
	"skymock/app/render"
	"skymock/app/repositories"
	"skymock/app/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
)

// Controllers is everything the router dispatches to. Static may be nil.
type Controllers struct {
	API     *controllers.APIController
	Preview *controllers.PreviewController
	Live    *controllers.LiveController
	Static  http.Handler
}

// SetupRoutes defines the application's routes. The returned handler
// answers CORS preflights before any route matching.
func SetupRoutes(c Controllers) http.Handler {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Session)

	// API routes with JSON content type
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)

	api.HandleFunc("/posts", c.API.Posts).Methods("GET")
	api.HandleFunc("/post", c.API.Post).Methods("GET")
	api.HandleFunc("/avatar", c.API.Avatar).Methods("GET")
	api.HandleFunc("/health", c.API.Health).Methods("GET")

	api.HandleFunc("/preview", c.Preview.Preview).Methods("POST")
	api.HandleFunc("/export", c.Preview.Export).Methods("POST")
	api.HandleFunc("/images", c.Preview.Images).Methods("POST")
	api.HandleFunc("/images/initials", c.Preview.Initials).Methods("POST")
	api.HandleFunc("/theme", c.Preview.GetTheme).Methods("GET")
	api.HandleFunc("/theme", c.Preview.SetTheme).Methods("PUT", "POST")

	api.HandleFunc("/live", c.Live.Serve).Methods("GET")

	// Anything else under /api is a JSON 404, never the front end.
	api.PathPrefix("/").HandlerFunc(apiNotFound)

	if c.Static != nil {
		router.PathPrefix("/").Handler(c.Static).Methods("GET", "HEAD")
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			apiNotFound(w, r)
			return
		}
		http.NotFound(w, r)
	})

	return middleware.CORS(router)
}

func apiNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not found"}` + "\n"))
}

// App is a fully wired handler plus the resources it holds open.
type App struct {
	Handler http.Handler
	static  *controllers.StaticController
}

// Close releases the static file watcher.
func (a *App) Close() error {
	if a.static == nil {
		return nil
	}
	return a.static.Close()
}

// SetupAppRoutes builds every service and controller from cfg, storing
// preferences and cached avatars in db.
func SetupAppRoutes(cfg *config.Config, db *badger.DB) (*App, error) {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}

	prefs := repositories.NewBadgerPreferenceRepository(db)
	feed := services.NewFeedService(services.FeedOptions{
		Host:           cfg.Feed.Host,
		PageSize:       cfg.Feed.PageSize,
		UserAgent:      cfg.Feed.UserAgent,
		Timeout:        cfg.Feed.Timeout,
		AvatarCache:    repositories.NewBadgerAvatarCache(db),
		AvatarCacheTTL: cfg.Avatar.CacheTTL,
		AvatarMaxBytes: cfg.Avatar.MaxBytes,
	})

	renderer, err := render.New(loc)
	if err != nil {
		return nil, err
	}

	raster := export.NewCardRasterizer(export.NewLoader(feed), loc, time.Now)
	docs := controllers.NewDocuments(prefs)
	app := &App{}
	c := Controllers{
		API: controllers.NewAPIController(feed),
		Preview: controllers.NewPreviewController(controllers.PreviewOptions{
			Renderer:   renderer,
			Rasterizer: raster,
			Ingester:   ingest.NewIngester(cfg.Ingest.MaxUploadBytes),
			Prefs:      prefs,
			Documents:  docs,
			Export: export.Options{
				Scale:       cfg.Export.Scale,
				SettleDelay: cfg.Export.SettleDelay,
				Location:    loc,
			},
		}),
		Live: controllers.NewLiveController(controllers.LiveOptions{
			Feed:     feed,
			Renderer: renderer,
			Prefs:    prefs,
			Picker: picker.Config{
				PageSize: cfg.Picker.PageSize,
				Debounce: cfg.Picker.Debounce,
				Location: loc,
			},
			Documents: docs,
		}),
	}

	if cfg.Server.StaticDir != "" {
		if err := controllers.CheckDir(cfg.Server.StaticDir); err != nil {
			log.Printf("[routes] front end disabled: %v", err)
		} else {
			static, err := controllers.NewStaticController(cfg.Server.StaticDir, cfg.Server.AnalyticsID)
			if err != nil {
				return nil, err
			}
			app.static = static
			c.Static = static
		}
	}

	app.Handler = SetupRoutes(c)
	return app, nil
}

// StartServer serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
