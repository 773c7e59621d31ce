package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"flashcw/logger"
)

// Config 实时监视页面的配置
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"` // 0 表示随机端口
}

// Server 监视页面的 HTTP 服务
type Server struct {
	config Config
	logger *logger.Logger
	server *http.Server
	hub    *Hub
	api    *API
	addr   string
	mu     sync.RWMutex
	ready  chan struct{}
}

// NewServer 创建服务，Start 之前可以先拿 Hub 广播
func NewServer(cfg Config, log *logger.Logger, status StatusFunc, transcripts TranscriptLister) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		config: cfg,
		logger: log,
		hub:    NewHub(log),
		api:    NewAPI(log, status, transcripts),
		ready:  make(chan struct{}),
	}
}

// Handler 所有路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.api.HandleStatus)
	mux.HandleFunc("/api/transcripts", s.api.HandleTranscripts)
	mux.Handle("/ws", s.hub.Handler())
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start 阻塞运行直到 ctx 取消
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Web server is disabled")
		return nil
	}

	go s.hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("Starting web server", logger.String("address", s.addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}

// Ready 监听成功后关闭
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr 实际监听地址
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Hub 事件广播
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "flashcw",
		"clients": s.hub.ClientCount(),
		"time":    time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}
