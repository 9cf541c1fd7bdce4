package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/api/handlers"
	"github.com/BaSui01/nodeflow/config"
	"github.com/BaSui01/nodeflow/internal/metrics"
	"github.com/BaSui01/nodeflow/internal/server"
	"github.com/BaSui01/nodeflow/internal/telemetry"
	"github.com/BaSui01/nodeflow/internal/tlsutil"
	"github.com/BaSui01/nodeflow/workflow"
	"github.com/BaSui01/nodeflow/workflow/dsl"
	"github.com/BaSui01/nodeflow/workflow/nodes"
)

// skipAuthPaths 不需要认证的路径
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 NodeFlow 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler *handlers.HealthHandler
	flowHandler   *handlers.FlowHandler

	// 指标
	registry         *prometheus.Registry
	metricsCollector *metrics.Collector

	telemetry *telemetry.Providers

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例。providers 可为 nil
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		cfg:              cfg,
		logger:           logger,
		registry:         registry,
		metricsCollector: metrics.NewCollectorWithRegisterer("nodeflow", registry, logger),
		telemetry:        providers,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动 HTTP 与 Metrics 服务（非阻塞）
func (s *Server) Start() error {
	handler, err := s.buildHandler()
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	var tlsConfig *tls.Config
	if s.cfg.Server.TLSCertFile != "" {
		tlsConfig, err = tlsutil.ServerTLSConfig(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
		if err != nil {
			return err
		}
	}

	s.httpManager = server.NewManager(handler, server.Config{
		Name:            "http",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		TLS:             tlsConfig,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.metricsManager = server.NewManager(s.metricsHandler(), server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("flow", s.flowHandler.Name()),
	)
	return nil
}

// buildHandler 加载流程、初始化 handlers 并组装路由与中间件链
func (s *Server) buildHandler() (http.Handler, error) {
	parser := newParser(s.cfg.Engine, s.logger, s.metricsCollector)
	def, err := loadDefinition(parser, s.cfg.Engine.FlowFile)
	if err != nil {
		return nil, err
	}

	s.flowHandler = handlers.NewFlowHandler(def, s.logger,
		handlers.WithMaxBodyBytes(s.cfg.Server.MaxBodyBytes),
		handlers.WithExecutionTimeout(s.cfg.Engine.ExecutionTimeout),
		handlers.WithFlowRecorder(s.metricsCollector),
		handlers.WithNodeTypes(parser.NodeNames()),
	)
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.FlowReadyCheck(s.flowHandler))

	s.logger.Info("Flow loaded",
		zap.String("flow", def.Name),
		zap.String("source", flowSource(s.cfg.Engine.FlowFile)),
	)

	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 流程 API
	mux.HandleFunc("POST /execute", s.flowHandler.HandleExecute)
	mux.HandleFunc("POST /api/v1/flows/execute", s.flowHandler.HandleExecute)
	mux.HandleFunc("POST /api/v1/flows/execute/stream", s.flowHandler.HandleStream)
	mux.HandleFunc("GET /api/v1/flows", s.flowHandler.HandleList)

	rateLimiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
	}
	if len(s.cfg.Server.APIKeys) > 0 {
		chain = append(chain, APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.cfg.Server.AllowQueryAPIKey, s.logger))
	}
	if s.cfg.Server.JWT.Enabled {
		chain = append(chain, JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger))
		if s.cfg.Server.RateLimitRPS > 0 {
			chain = append(chain, TenantRateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
		}
	}

	return Chain(mux, chain...), nil
}

// metricsHandler 暴露 /metrics
func (s *Server) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	return mux
}

// newParser 创建带内置节点与叶子中间件的 DSL 解析器。recorder 为 nil 时不记录节点指标
func newParser(cfg config.EngineConfig, logger *zap.Logger, recorder workflow.MetricsRecorder) *dsl.Parser {
	mws := []workflow.Middleware{workflow.Logging(logger), workflow.Tracing("")}
	if recorder != nil {
		mws = append(mws, workflow.Metrics(recorder))
	}
	parser := dsl.NewParser(
		dsl.WithNodeTimeout(cfg.NodeTimeout),
		dsl.WithMaxConcurrency(cfg.MaxConcurrency),
		dsl.WithMiddleware(mws...),
	)
	nodes.Register(parser)
	return parser
}

// builtinFlowYAML 未配置 flow_file 时加载的默认流程
const builtinFlowYAML = `name: add
description: adds a and b
root:
  type: flow
  children:
    - type: node
      use: add
`

// loadDefinition 从文件加载流程；path 为空时加载内置的 add 流程
func loadDefinition(parser *dsl.Parser, path string) (*dsl.Definition, error) {
	if path == "" {
		return parser.Parse([]byte(builtinFlowYAML))
	}
	def, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %s: %w", path, err)
	}
	return def, nil
}

func flowSource(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown(ctx)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		s.logger.Error("Shutdown completed with errors", zap.Error(err))
	}
}

// Shutdown 优雅关闭所有服务，可重复调用
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Starting graceful shutdown...")

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	var errs []error
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	s.logger.Info("Graceful shutdown completed")
	return errors.Join(errs...)
}
