package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/support-chat/backend/internal/config"
	"github.com/zhouzirui/support-chat/backend/internal/handler"
	"github.com/zhouzirui/support-chat/backend/internal/model/profile"
	"github.com/zhouzirui/support-chat/backend/internal/observability"
	"github.com/zhouzirui/support-chat/backend/internal/service/inference"
	"github.com/zhouzirui/support-chat/backend/internal/service/widget"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.Telemetry.TraceStdout {
		tp, err := observability.NewStdoutTracerProvider(cfg.Telemetry.ServiceName)
		if err != nil {
			log.Printf("warning: tracing disabled: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	profiles := profile.NewMemoryStore(profile.Seed())
	assistant, ok := profiles.FindByID(cfg.Widget.DefaultProfile)
	if !ok {
		log.Fatalf("unknown WIDGET_PROFILE %q", cfg.Widget.DefaultProfile)
	}

	if !cfg.AI.Enabled() && cfg.Widget.Credential == "" {
		log.Println("Ark 凭证未配置，推理调用将以错误消息回复")
	}

	// The module loads in the background; turns submitted before it is
	// ready are answered with the error message.
	module := inference.NewChainModule(assistant.SystemPrompt, cfg.AI.NewChatModel)
	loader := inference.NewInitializer(module)
	loader.Start(ctx)

	client := inference.NewClient(loader, cfg.Widget.Credential)
	widgets := widget.NewService(profiles, client, widget.Config{
		DefaultProfile: cfg.Widget.DefaultProfile,
		ThinkingText:   cfg.Widget.ThinkingText,
	})

	router := handler.NewRouter(cfg.Server.AllowedOrigins, profiles, widgets, loader.Ready)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("support chat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
