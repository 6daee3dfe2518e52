// Command fintrack-useradd creates a user in the configured record store.
//
// Usage:
//
//	fintrack-useradd <username>
//
// The password is read from FINTRACK_PASSWORD or, when unset, from the first
// line of standard input.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentUsers)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: fintrack-useradd <username>")
		os.Exit(2)
	}
	username := os.Args[1]

	password, err := readPassword()
	if err != nil {
		logger.Error("Failed to read password", log.FieldError, err)
		os.Exit(1)
	}

	if !backend.BackendType(cfg.DataBackend).Persistent() {
		logger.Warn("Memory backend selected, the user will not survive this process", log.FieldBackend, cfg.DataBackend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""
	result := cli.InitBackend(ctx, logger, backendCfg)
	defer result.Cleanup()

	user, err := services.NewUsers(result.Store).Register(ctx, username, password)
	if ve, ok := core.IsValidation(err); ok {
		for _, f := range ve.Fields {
			fmt.Fprintf(os.Stderr, "%s: %s\n", f.Field, f.Message)
		}
		result.Cleanup()
		os.Exit(1)
	}
	if errors.Is(err, core.ErrConflict) {
		logger.Error("Username already taken", "username", username)
		result.Cleanup()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("Failed to create user", log.FieldError, err)
		result.Cleanup()
		os.Exit(1)
	}
	logger.Info("User created", "id", user.ID, "username", user.Username)
}

func readPassword() (string, error) {
	if pw := os.Getenv("FINTRACK_PASSWORD"); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("no password on stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
