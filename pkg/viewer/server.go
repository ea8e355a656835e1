package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/HorseArcher567/applog/pkg/viewer/middleware"
	"github.com/HorseArcher567/applog/pkg/xlog"
	"github.com/gin-gonic/gin"
)

// Server 只读的日志查看服务：实时告警流、日志文件列表与尾部内容。
type Server struct {
	config Config
	logs   *xlog.Logger

	engine     *gin.Engine
	httpServer *http.Server

	mu   sync.Mutex
	addr net.Addr

	log *slog.Logger
}

// NewServer 创建日志查看服务，logs 为被查看的 Logger，同时用于记录服务自身的日志。
func NewServer(logs *xlog.Logger, cfg Config) *Server {
	if logs == nil {
		panic("viewer: logger is nil")
	}
	cfg = cfg.normalize()

	s := &Server{
		config: cfg,
		logs:   logs,
		log:    logs.With("component", "viewer").Logger,
	}

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Context(logs.With("component", "viewer")),
		middleware.Recovery(),
		middleware.Logging(),
	)
	s.engine = engine

	s.registerRoutes()
	if cfg.EnablePProf {
		s.registerPProf()
	}
	return s
}

// Handler 返回 HTTP 处理器，便于测试或挂载到已有服务。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 返回实际监听地址，Run 开始监听前为 nil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run 启动 HTTP 服务并阻塞，ctx 结束时优雅关闭。
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("viewer: failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:     s.engine,
		ReadTimeout: s.config.ReadTimeout,
		IdleTimeout: s.config.IdleTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.addr = lis.Addr()
	s.httpServer = server
	s.mu.Unlock()

	s.log.Info("starting viewer", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("viewer: serve: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down viewer gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("viewer: shutdown: %w", err)
	}

	s.log.Info("viewer shutdown complete")
	return nil
}

// registerPProf 将 pprof 路由挂载到 /debug/pprof。
func (s *Server) registerPProf() {
	g := s.engine.Group("/debug/pprof")
	{
		g.GET("/", gin.WrapF(pprof.Index))
		g.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		g.GET("/profile", gin.WrapF(pprof.Profile))
		g.GET("/symbol", gin.WrapF(pprof.Symbol))
		g.GET("/trace", gin.WrapF(pprof.Trace))
		g.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
		g.GET("/block", gin.WrapH(pprof.Handler("block")))
		g.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		g.GET("/heap", gin.WrapH(pprof.Handler("heap")))
		g.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	}
}
