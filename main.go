package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damndeepesh/PingMeMaybe/internal/api"
	"github.com/damndeepesh/PingMeMaybe/internal/chat"
	"github.com/damndeepesh/PingMeMaybe/internal/config"
	"github.com/damndeepesh/PingMeMaybe/internal/database"
	"github.com/damndeepesh/PingMeMaybe/internal/registry"
	"github.com/damndeepesh/PingMeMaybe/internal/room"
	"github.com/damndeepesh/PingMeMaybe/internal/security"
	ws "github.com/damndeepesh/PingMeMaybe/internal/websocket"
)

// GracefulShutdown handles graceful server shutdown
type GracefulShutdown struct {
	server  *http.Server
	timeout time.Duration
	cleanup func()
	done    chan bool
}

// NewGracefulShutdown creates a new graceful shutdown handler
func NewGracefulShutdown(server *http.Server, timeout time.Duration, cleanup func()) *GracefulShutdown {
	return &GracefulShutdown{
		server:  server,
		timeout: timeout,
		cleanup: cleanup,
		done:    make(chan bool, 1),
	}
}

// Start starts the graceful shutdown handler
func (gs *GracefulShutdown) Start() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("🛑 Received signal: %v", sig)
		log.Println("🔄 Starting graceful shutdown...")

		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		if err := gs.server.Shutdown(ctx); err != nil {
			log.Printf("❌ Server shutdown error: %v", err)
		} else {
			log.Println("✅ Server shutdown completed")
		}

		if gs.cleanup != nil {
			gs.cleanup()
		}

		gs.done <- true
	}()
}

// Wait waits for graceful shutdown to complete
func (gs *GracefulShutdown) Wait() {
	<-gs.done
}

// logLANAddresses prints every address clients on the local network can use
func logLANAddresses(port string) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			log.Printf("🌐 LAN access: http://%s%s", ipNet.IP, port)
		}
	}
}

func main() {
	cfg := config.DefaultServerConfig()
	cfg.LoadFromEnv()
	metrics := config.NewServerMetrics()
	validator := security.NewInputValidator(cfg)

	// เชื่อมต่อ MongoDB
	mongoConfig := database.DefaultMongoConfig()
	mongoConfig.URI = cfg.MongoURI
	mongoConfig.Database = cfg.MongoDatabase

	db, err := database.NewMongoDB(mongoConfig)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	if err := db.CreateIndexes(); err != nil {
		log.Fatalf("❌ Failed to create indexes: %v", err)
	}

	messageRepo := database.NewMongoMessageRepository(db)
	userRepo := database.NewMongoUserRepository(db)

	// โหลดห้องที่เคยมีข้อความเข้า directory
	directory := room.NewDirectory()
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if rooms, err := messageRepo.ListDistinctRooms(seedCtx); err != nil {
		log.Printf("⚠️ Failed to seed room directory: %v", err)
	} else {
		directory.Seed(rooms)
		log.Printf("🏠 Seeded room directory with %d rooms", len(rooms))
	}
	seedCancel()

	connRegistry := registry.New()
	manager := ws.NewManager(cfg, metrics)

	service := chat.NewService(connRegistry, directory, manager, validator, metrics)
	manager.SetSessionHandler(service)
	go manager.Run()

	wsHandler := chat.NewHandler(manager, service, cfg)
	apiHandler := api.NewHandler(messageRepo, userRepo, service, validator)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := db.HealthCheck(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":      status,
			"connections": manager.ConnectionCount(),
			"uptime":      time.Since(metrics.StartTime).Round(time.Second).String(),
			"metrics":     metrics.GetMetrics(),
		})
	})

	// เสิร์ฟหน้าเว็บ client
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	server := &http.Server{
		Addr:    cfg.Port,
		Handler: mux,
	}

	gracefulShutdown := NewGracefulShutdown(server, cfg.ShutdownTimeout, func() {
		if err := db.Close(); err != nil {
			log.Printf("❌ MongoDB close error: %v", err)
		}
	})
	gracefulShutdown.Start()

	log.Printf("🚀 Starting LAN Chat Server on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Port)
	log.Printf("🌐 Web client: http://localhost%s", cfg.Port)
	logLANAddresses(cfg.Port)
	log.Printf("👥 Connection Manager: Ready (Max: %d)", cfg.MaxConnections)
	log.Printf("⚙️  Configuration: PingInterval=%v, ReadTimeout=%v, WriteTimeout=%v",
		cfg.PingInterval, cfg.ReadTimeout, cfg.WriteTimeout)
	log.Println("🛑 Press Ctrl+C for graceful shutdown")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("❌ Server failed to start: %v", err)
	}

	gracefulShutdown.Wait()
	log.Println("👋 Server stopped gracefully")
}
