// Command calcserver serves a calculator over JSON-RPC 2.0.
//
// POST requests to /rpc dispatch to the calculator, /rpc/{service} looks
// the service up by name and GET /methods/{service} lists its methods.
// Settings are read from an optional file given with -config, a .env file
// and JSONRPC_* variables.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnehpets/jsonrpc2/auth"
	"github.com/mnehpets/jsonrpc2/classify"
	"github.com/mnehpets/jsonrpc2/config"
	"github.com/mnehpets/jsonrpc2/endpoint"
	"github.com/mnehpets/jsonrpc2/middleware"
	"github.com/mnehpets/jsonrpc2/server"
	"github.com/mnehpets/jsonrpc2/service"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "config file (yaml, json or toml)")
	flag.Parse()

	conf, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := conf.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newMux(conf *config.Config, logger *zap.Logger, cache *service.Cache, verifier *auth.Verifier) *http.ServeMux {
	calc := NewCalculator()
	registry := service.NewRegistry(service.WithDefault(calc), service.WithRegistryLogger(logger))
	registry.Register("calc", calc)

	dispatcher := server.New(
		server.WithLogger(logger),
		server.WithCache(cache),
		server.WithRegistry(registry),
		server.WithClassifier(classify.New(classify.WithRules(calcRules()...), classify.WithLogger(logger))),
	)
	rpc := server.NewEndpoint(dispatcher, calc)
	if conf.MaxBody > 0 {
		rpc.MaxBodyBytes = conf.MaxBody
	}

	processors := []endpoint.Processor{
		middleware.NewLoggingProcessor(logger),
		middleware.NewHeadersProcessor(middleware.WithCORS("*")),
	}
	if verifier != nil {
		bearer := auth.NewBearerProcessor(verifier, logger)
		bearer.Scope = conf.Auth.Scope
		processors = append(processors, bearer)
	}
	if conf.RateLimit.RPS > 0 {
		processors = append(processors, middleware.NewRateLimitProcessor(conf.RateLimit.RPS, conf.RateLimit.Burst))
	}
	processors = append(processors, middleware.TimeoutProcessor{Timeout: conf.Timeout})

	mux := http.NewServeMux()
	mux.Handle(conf.Path, endpoint.Handler(rpc.Endpoint, processors...))
	mux.Handle(conf.Path+"/{service}", endpoint.Handler(rpc.Endpoint, processors...))
	mux.Handle("GET /methods/{service}", endpoint.Handler(rpc.MethodsEndpoint, processors...))
	return mux
}

func run(ctx context.Context, conf *config.Config, logger *zap.Logger) error {
	var verifier *auth.Verifier
	if conf.Auth.Issuer != "" {
		v, err := auth.NewVerifier(ctx, conf.Auth.Issuer, conf.Auth.Audience)
		if err != nil {
			return err
		}
		verifier = v
	}

	cache := service.NewCache(service.WithTTL(conf.Cache.TTL), service.WithLogger(logger))
	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           newMux(conf, logger, cache, verifier),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweep(ctx, cache, conf.Cache.TTL, logger)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", conf.Listen), zap.String("path", conf.Path))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("stopped")
	return nil
}

// sweep drops expired descriptors once per ttl.
func sweep(ctx context.Context, cache *service.Cache, ttl time.Duration, logger *zap.Logger) {
	if ttl <= 0 {
		ttl = service.DefaultTTL
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cache.Sweep(); n > 0 {
				logger.Debug("swept descriptor cache", zap.Int("expired", n))
			}
		}
	}
}
