package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"inboxd/internal/config"
	"inboxd/internal/store"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run diagnostic checks on the inboxd setup",
		Long: `Verifies that configuration, the webhook secret, the database, and the
listen port are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("inboxd check v%s\n\n", version)

			passed := 0
			failed := 0

			cfg, err := config.Load(configPath)
			if err != nil {
				printFail("Config", err.Error())
				failed++
				fmt.Printf("\nResults: %d passed, %d failed\n", passed, failed)
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config", "valid, webhook secret set")
			passed++

			if err := checkDatabase(cfg.DatabasePath); err != nil {
				printFail("Database", err.Error())
				failed++
			} else {
				printPass("Database", cfg.DatabasePath)
				passed++
			}

			if err := checkPort(cfg.Addr()); err != nil {
				printFail("Listen addr", fmt.Sprintf("%s: %v", cfg.Addr(), err))
				failed++
			} else {
				printPass("Listen addr", cfg.Addr())
				passed++
			}

			fmt.Printf("\nResults: %d passed, %d failed\n", passed, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			fmt.Println("\nAll checks passed.")
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := store.Open(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return st.Ping(ctx)
}

func checkPort(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-16s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-16s %s\n", check, detail)
}
