package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mohammad-safakhou/askweb/config"
	"github.com/mohammad-safakhou/askweb/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var root = &cobra.Command{
		Use:           "askweb",
		Short:         "Conversational question answering over fresh web search results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./askweb.yaml or ./config/askweb.yaml)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := logging.Init(cfg.General.LogFile); err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		return cfg, nil
	}
	root.AddCommand(serveCMD(load), askCMD(load))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	_ = logging.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
