// Command chanlink-echo-server is a minimal demonstration server: it
// accepts connections, echoes every Msg back to its sender, acknowledges
// every Request, and logs every lifecycle event. It exists to exercise the
// server package end to end, not as a production deployable.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/server"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "chanlink-echo-server",
		Short: "Run a demonstration chanlink echo server",
		RunE:  runServer,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acceptorCfg := server.Default()
	var auth server.Authenticator = server.NoneAuthenticator{}
	srvCfg := server.DefaultServerConfig()
	if cfg.Secret != "" {
		auth = server.NewSecretAuthenticator(srvCfg.Codec, []byte(cfg.Secret))
	}

	srv, err := server.New(ctx, cfg.ListenAddr, acceptorCfg, auth, srvCfg)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info("server listening", slog.String("url", srv.URL()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()

	for {
		event, ok := srv.Next(ctx)
		if !ok {
			return nil
		}
		handleEvent(srv, logger, event)
	}
}

func handleEvent(srv *server.Server, logger *slog.Logger, event server.Event) {
	switch event.Kind {
	case server.EventConnected:
		logger.Info("client connected", slog.String("client_id", event.ClientID.String()), slog.String("env", event.Env.String()))
	case server.EventDisconnected:
		logger.Info("client disconnected", slog.String("client_id", event.ClientID.String()))
	case server.EventMsg:
		var payload string
		_ = event.DecodeMsg(&payload)
		logger.Info("msg received, echoing", slog.String("client_id", event.ClientID.String()), slog.String("payload", payload))
		if err := srv.Send(event.ClientID, payload); err != nil {
			logger.Warn("echo failed", slog.Any("err", err))
		}
	case server.EventRequest:
		var payload string
		_ = event.DecodeRequest(&payload)
		logger.Info("request received, acknowledging", slog.String("client_id", event.ClientID.String()), slog.String("payload", payload))
		event.Token.Ack()
	}
}
