// Command chanlink-echo-client is a minimal demonstration client: it
// connects, sends one message and one request every few seconds, and logs
// every event it receives. It exists to exercise the client package end to
// end, not as a production deployable.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/client"
	"github.com/chanlink/chanlink/wire"
)

func mustClientID() uuid.UUID { return uuid.New() }

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "chanlink-echo-client",
		Short: "Run a demonstration chanlink echo client",
		RunE:  runClient,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a config file (yaml/json/toml)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var auth wire.AuthRequest = client.NoneAuth()
	if cfg.Secret != "" {
		auth = client.SecretAuth([]byte(cfg.Secret))
	}

	clientID := mustClientID()
	cl, err := client.New(ctx, cfg.ServerURL, clientID, wire.EnvNative, auth, client.DefaultClientConfig(), "echo-client")
	if err != nil {
		return fmt.Errorf("starting client: %w", err)
	}
	logger.Info("connecting", slog.String("url", cfg.ServerURL), slog.String("client_id", clientID.String()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("closing")
		cl.Close()
	}()

	go sendLoop(ctx, cl, logger, cfg.Message)

	for {
		event, ok := cl.Next(ctx)
		if !ok {
			return nil
		}
		handleEvent(logger, event)
		if event.Kind == client.EventDead {
			return nil
		}
	}
}

func sendLoop(ctx context.Context, cl *client.Client, logger *slog.Logger, message string) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sig := cl.Send(message)
			logger.Info("sent message", slog.String("status", sig.Status().String()))

			reqSig := cl.Request(message)
			go func() {
				<-time.After(2 * time.Second)
				logger.Info("request status", slog.String("status", reqSig.Status().String()))
			}()
		}
	}
}

func handleEvent(logger *slog.Logger, event client.Event) {
	switch event.Kind {
	case client.EventConnected:
		logger.Info("connected")
	case client.EventDisconnected:
		logger.Info("disconnected")
	case client.EventMsg:
		var payload string
		_ = event.Decode(&payload)
		logger.Info("msg received", slog.String("payload", payload))
	case client.EventResponse, client.EventAck, client.EventReject:
		logger.Info("request answered", slog.String("kind", event.Kind.String()), slog.Uint64("request_id", event.RequestID))
	case client.EventClosedBySelf:
		logger.Info("closed by self")
	case client.EventDead:
		logger.Info("dead", slog.String("reason", event.DeadReason.String()))
	}
}
