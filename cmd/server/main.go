// @title         cvchat API
// @version       1.0
// @description   Conversational CV builder: an LLM assistant that fills a structured CV through tool calls.
// @BasePath      /api/v1
// @schemes       http
// @host          localhost:8080
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Токен авторизации. Поддерживаются форматы: "Bearer <JWT>" или "<JWT>".
package main

//go:generate swag init -g main.go -d ./,../../api/http/handlers -o ../../docs

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artem13815/cvchat/pkg/config"
	"github.com/artem13815/cvchat/pkg/llm/openrouter"
	"github.com/artem13815/cvchat/pkg/logger"
)

var root = &cobra.Command{
	Use:   "server",
	Short: "Conversational CV builder backend",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (default)",
	RunE:  runServe,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Print the free models offered by OpenRouter",
	RunE:  runModels,
}

func init() {
	root.PersistentFlags().Bool("verbose", false, "debug logging (overrides LOG_VERBOSE)")
	root.AddCommand(serveCmd, modelsCmd)
}

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Load()
	if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
		cfg.LogVerbose = true
	}
	logger.Init(cfg.LogVerbose)
	return cfg
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig(cmd)
	log := logger.Get()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Errorw("init failed", "error", err)
		return err
	}
	defer a.close()
	return a.serve(ctx)
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig(cmd)
	client := openrouter.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.AppTitle, cfg.LLM.Referer)
	models, err := client.ListFreeModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCONTEXT")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%d\n", m.ID, m.Name, m.ContextLength)
	}
	return w.Flush()
}
