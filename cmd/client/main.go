package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peerdrop/roulette/internal/adapter/driven/media/pion"
	"github.com/peerdrop/roulette/internal/client"
	"github.com/peerdrop/roulette/internal/config"
	"github.com/peerdrop/roulette/internal/core/port"
	"github.com/peerdrop/roulette/internal/logging"
	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	rootCmd := &cobra.Command{
		Use:          "roulette-client",
		Short:        "Connects to a roulette server and chats with random strangers",
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVar(&serverURL, "server", "ws://localhost:8080/ws", "signaling server websocket URL")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	l := logging.Setup(cfg)

	// Local media lives for the whole process and is reused across
	// matches. Failing to get it is a dead end, not a retry loop.
	media, err := pion.NewMediaSource()
	if err != nil {
		return fmt.Errorf("acquiring local media: %w", err)
	}
	defer media.Close()

	sig := client.NewSignaling(serverURL)
	if err := sig.Connect(); err != nil {
		return err
	}

	session := client.NewSession(client.Config{
		Signaling: sig,
		Media:     media,
		NewLink: pion.Factory(pion.Config{
			STUNServers:  cfg.STUNServers,
			TURNServers:  cfg.TURNServers,
			TURNUsername: cfg.TURNUsername,
			TURNPassword: cfg.TURNPassword,
		}),
		OnRemote: func(s port.RemoteStream) {
			fmt.Printf("* receiving %s stream %s\n", s.Kind(), s.ID())
		},
		OnNotice: func(msg string) {
			fmt.Println("*", msg)
		},
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			l.Error().Err(err).Msg("Session ended")
		}
	}()

	if err := session.FindMatch(); err != nil {
		return err
	}
	fmt.Println("* looking for a stranger... (commands: next, leave, find, quit)")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			switch scanner.Text() {
			case "find":
				session.FindMatch()
			case "next":
				session.Next()
			case "leave":
				session.Leave()
			case "quit":
				cancel()
				return
			}
		}
	}()

	<-done
	return nil
}
