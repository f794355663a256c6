package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8888"`
	Username      string `env:"CHAT_USERNAME"`
	LogLevel      string `env:"LOG_LEVEL,default=warn"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the stream connection lifecycle: identify with the
// display name, then pump stdin lines up and server lines down until
// either side closes.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	name := strings.TrimSpace(config.Username)
	if name == "" {
		fmt.Print("Display name: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return exitConfig, fmt.Errorf("reading display name: %w", err)
		}
		name = strings.TrimSpace(line)
	}
	if name == "" {
		return exitConfig, fmt.Errorf("a display name is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := net.DialTimeout("tcp", config.ServerAddress, 5*time.Second)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	if _, err := fmt.Fprintln(conn, name); err != nil {
		return exitRuntime, fmt.Errorf("sending display name: %w", err)
	}

	fmt.Println(color.Green.Sprintf(">>> Connected to %s as %s (Ctrl+C to quit, /help for commands)",
		config.ServerAddress, name))

	// Server line reception loop. Runs until the server closes the
	// connection or the context is canceled.
	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "[system ") {
				fmt.Println(color.Yellow.Sprint(line))
				continue
			}
			fmt.Println(line)
		}
		done <- scanner.Err()
	}()

	// Stdin pump: every line typed goes to the server as-is.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if _, err := fmt.Fprintln(conn, scanner.Text()); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println(color.Yellow.Sprint("\nLeaving the chat..."))
		return exitOK, nil
	case err := <-done:
		if err != nil {
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}
		fmt.Println(color.Yellow.Sprint("Server closed the connection"))
		return exitOK, nil
	}
}
