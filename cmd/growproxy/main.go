package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trixolol/GrowProxy/bootstrap"
	"github.com/trixolol/GrowProxy/certs"
	"github.com/trixolol/GrowProxy/command"
	"github.com/trixolol/GrowProxy/config"
	"github.com/trixolol/GrowProxy/hooks"
	"github.com/trixolol/GrowProxy/internal/transport"
	"github.com/trixolol/GrowProxy/relay"
	"github.com/trixolol/GrowProxy/resolve"
	"github.com/trixolol/GrowProxy/schedule"
	"github.com/trixolol/GrowProxy/world"
)

const (
	maxPeers     = 1
	channelCount = 2
)

func main() {
	cfg, err := config.Load(envOr("GROWPROXY_CONFIG", "config.json"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cert, err := certs.LoadOrGenerate(cfg.Web.CertPath, cfg.Web.KeyPath)
	if err != nil {
		sugar.Fatalw("load or generate certificate", "err", err)
	}

	resolver, err := resolve.New(cfg.Client.DNSServer)
	if err != nil {
		sugar.Fatalw("build resolver", "err", err)
	}

	hooksBus := hooks.New()
	cmds := command.New(cfg.Command.Prefix[0], sugar)
	worldState := world.New()
	sched := schedule.New(sugar)
	core := relay.New(cfg, hooksBus, cmds, worldState, sched, sugar)

	inbound, boundPort, err := transport.ListenWithFallback(cfg.Server.Port, maxPeers, channelCount)
	if err != nil {
		sugar.Fatalw("bind inbound listener", "err", err)
	}
	defer inbound.Destroy()
	if boundPort != cfg.Server.Port {
		sugar.Infow("inbound port in use, bound fallback port instead", "configured", cfg.Server.Port, "bound", boundPort)
	}

	outbound, err := transport.Outbound(cfg.Client.LocalPort, maxPeers, channelCount)
	if err != nil {
		sugar.Fatalw("create outbound host", "err", err)
	}
	defer outbound.Destroy()

	core.SetHosts(inbound, outbound)

	interceptor := bootstrap.New(cfg, resolver, core, sugar)
	httpServer := &http.Server{
		Addr:      fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:   interceptor,
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	coreDone := make(chan struct{})
	go func() {
		core.Run(ctx)
		close(coreDone)
	}()

	serveErr := make(chan error, 1)
	go func() {
		sugar.Infow("https interceptor listening", "addr", httpServer.Addr, "boundInboundPort", boundPort)
		serveErr <- httpServer.ListenAndServeTLS("", "")
	}()

	select {
	case <-ctx.Done():
		sugar.Infow("shutting down")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			sugar.Errorw("https interceptor stopped", "err", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("https interceptor shutdown", "err", err)
	}

	select {
	case <-coreDone:
	case <-shutdownCtx.Done():
		sugar.Warnw("relay core did not shut down within the grace period")
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
