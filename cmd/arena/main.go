// Package main is the entry point for the arena core service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agentarena/arena/internal/broadcast"
	"github.com/agentarena/arena/internal/calllog"
	"github.com/agentarena/arena/internal/config"
	"github.com/agentarena/arena/internal/contextbuild"
	"github.com/agentarena/arena/internal/logging"
	"github.com/agentarena/arena/internal/memory"
	"github.com/agentarena/arena/internal/model"
	"github.com/agentarena/arena/internal/orchestrator"
	"github.com/agentarena/arena/internal/registry"
	"github.com/agentarena/arena/internal/session"
	"github.com/agentarena/arena/internal/worker"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logging.SetDefault(log)

	log.Info("starting arena core")

	// 3. Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Open the SQLite session store
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		log.Fatal("failed to create database directory", zap.Error(err))
	}
	sessions, err := session.NewManager(cfg.Database.DSN())
	if err != nil {
		log.Fatal("failed to open session store", zap.Error(err))
	}
	defer sessions.Close()

	// 5. Registry, optionally seeded from a profiles directory
	reg := registry.New(log)
	if err := reg.LoadYAML(cfg.Registry.ProfilesDir); err != nil {
		log.Fatal("failed to load agent registry", zap.Error(err))
	}

	// 6. Memory Plane
	store, err := memory.NewStore(cfg.Memory.RootDir)
	if err != nil {
		log.Fatal("failed to open memory store", zap.Error(err))
	}
	summary, err := memory.NewSummary(cfg.Memory.RootDir)
	if err != nil {
		log.Fatal("failed to open session summary store", zap.Error(err))
	}
	personal := memory.NewPersonal()

	// 7. Call Logger
	callLogger, err := calllog.New(filepath.Join(filepath.Dir(cfg.Memory.RootDir), "logs"), log)
	if err != nil {
		log.Fatal("failed to open call logger", zap.Error(err))
	}

	// 8. Event bus: NATS when configured, in-memory otherwise
	bus, err := newEventBus(cfg.Events, log)
	if err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer bus.Close()
	broadcaster := broadcast.New(bus)

	// 9. Context Builder
	builder := contextbuild.New(reg, sessions, store, personal, summary)

	// 10. Worker Runtime, forwarding status transitions as agent_status events
	onStatus := func(groupID, agentID string, event model.StatusEvent) {
		if groupID == "" {
			return
		}
		if err := broadcaster.Publish(broadcast.EventAgentStatus, groupID, map[string]interface{}{
			"agent_id": agentID, "status": event.Status, "detail": event.Detail,
		}); err != nil {
			log.WithGroupID(groupID).WithAgentID(agentID).WithError(err).Warn("arena: failed to broadcast agent_status")
		}
	}
	runtime := worker.NewRuntime(log, cfg.Worker.MaxConcurrent, onStatus)

	// 11. Orchestrator
	orch := orchestrator.New(sessions, builder, runtime, reg, store, personal, summary, callLogger, broadcaster, log)

	// 12. HTTP + WebSocket surface
	gateway := broadcast.NewGateway(broadcaster, log)
	mux := buildMux(sessions, orch, gateway, log)

	addr := cfg.HTTP.Addr
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 13. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down arena core")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}
	log.Info("arena core stopped")
}

func newEventBus(cfg config.EventsConfig, log *logging.Logger) (broadcast.Bus, error) {
	if cfg.NATSURL == "" {
		return broadcast.NewMemoryBus(log), nil
	}
	return broadcast.NewNATSBus(broadcast.NATSConfig{
		URL:        cfg.NATSURL,
		ClientName: "arena-core-" + cfg.Namespace,
	}, log)
}

// incomingMessage is the POST body for one human chat message.
type incomingMessage struct {
	AuthorID string   `json:"author_id"`
	Content  string   `json:"content"`
	Mentions []string `json:"mentions,omitempty"`
}

func buildMux(sessions *session.Manager, orch *orchestrator.Orchestrator, gateway *broadcast.Gateway, log *logging.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /api/v1/groups/{groupID}/messages", func(w http.ResponseWriter, r *http.Request) {
		groupID := r.PathValue("groupID")

		var in incomingMessage
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if in.AuthorID == "" || in.Content == "" {
			http.Error(w, "author_id and content are required", http.StatusBadRequest)
			return
		}

		stored, err := sessions.SaveMessage(r.Context(), model.StoredMessage{
			GroupID:    groupID,
			AuthorID:   in.AuthorID,
			AuthorType: model.AuthorHuman,
			Content:    in.Content,
			Mentions:   in.Mentions,
		})
		if err != nil {
			log.WithGroupID(groupID).WithError(err).Error("arena: failed to persist human message")
			http.Error(w, "failed to persist message", http.StatusInternalServerError)
			return
		}

		// Fire-and-forget: the orchestrator surfaces replies asynchronously
		// over the Broadcaster, not via this response (§6 ingress contract).
		go orch.OnNewMessage(context.Background(), groupID, in.Content, in.AuthorID, in.Mentions)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(stored)
	})

	mux.HandleFunc("GET /api/v1/groups/{groupID}/stream", func(w http.ResponseWriter, r *http.Request) {
		groupID := r.PathValue("groupID")
		if err := gateway.ServeGroup(w, r, groupID); err != nil {
			log.WithGroupID(groupID).WithError(err).Warn("arena: websocket gateway session ended with error")
		}
	})

	return mux
}
