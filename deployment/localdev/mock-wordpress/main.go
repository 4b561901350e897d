package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// A stand-in WordPress site for exercising the engine's self-probe locally: it answers
// the wp-cron.php loopback, sends CDN headers from the front page and can be told to
// fail so the retry and breaker paths show up in the engine logs.
func main() {
	addr := flag.String("addr", ":8081", "listen address")
	flag.Parse()

	var failing atomic.Bool
	logger := log.New(log.Writer(), "wp-mock ", log.LstdFlags|log.Lmicroseconds)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logRequests(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Server", "cloudflare")
		w.Header().Set("CF-Ray", "7d9f1c2e3a4b5c6d-AMS")
		w.Header().Set("CF-Cache-Status", "HIT")
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = w.Write([]byte("<!doctype html><title>Mock WordPress</title>"))
	})

	r.HandleFunc("/wp-cron.php", func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("doing_wp_cron") == "" {
			logger.Println("loopback request without doing_wp_cron")
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/_mock/failing", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Failing bool `json:"failing"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		failing.Store(body.Failing)
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func logRequests(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
