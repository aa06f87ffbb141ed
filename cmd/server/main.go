package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inkroom/inkroom/internal/auth"
	"github.com/inkroom/inkroom/internal/collab"
	"github.com/inkroom/inkroom/internal/config"
	"github.com/inkroom/inkroom/internal/eventlog"
	"github.com/inkroom/inkroom/internal/export"
	mw "github.com/inkroom/inkroom/internal/middleware"
	"github.com/inkroom/inkroom/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := eventlog.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open event log", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	authService := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	hub := collab.NewHub(events,
		collab.WithDragDebounce(cfg.DragPersistDebounce),
		collab.WithDrawingTTL(cfg.DrawingFlagTTL),
		collab.WithSendBuffer(cfg.SendBuffer),
	)
	hubCtx, stopHub := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	roomHandler := collab.NewHandler(hub, authService, cfg.Origins())
	logHandler := eventlog.NewHandler(events)

	fonts, err := render.LoadFonts()
	if err != nil {
		slog.Warn("load fonts, exports will omit text", "error", err)
	} else {
		defer fonts.Close()
	}
	exportHandler := export.NewHandler(events, fonts)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/rooms/{roomId}/shapes", logHandler.Shapes).Methods("GET")
	api.HandleFunc("/rooms/{roomId}/events", logHandler.Events).Methods("GET")
	api.HandleFunc("/rooms/{roomId}/participants", roomHandler.Participants).Methods("GET")
	api.HandleFunc("/rooms/{roomId}/export.png", exportHandler.RoomPNG).Methods("GET")

	// Token travels in the query string; browsers cannot set headers on
	// websocket upgrades.
	r.HandleFunc("/ws/rooms", roomHandler.ServeWS).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Pending drag writes are flushed before the log closes.
		stopHub()
		<-hub.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "database", redactDSN(cfg.DatabaseURL))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
