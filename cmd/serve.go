package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/secrets"
	"github.com/spigell/fit-agent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation API over HTTP",
	Run:   serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve(cmd *cobra.Command, _ []string) {
	log := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := getConfig()
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "agent API key",
		File:  config.Server.APIKeyFile,
		Value: config.Server.APIKey,
		Env:   agentKeyEnv,
	})
	if err != nil {
		log.Fatal("loading API key", zap.Error(err))
	}

	svc, err := newServices(ctx, config, log)
	if err != nil {
		log.Fatal("creating agent", zap.Error(err))
	}

	srv, err := server.New(config.Server, apiKey, svc.agent, log, server.WithParsers(svc.resumes, svc.jobs))
	if err != nil {
		log.Fatal("creating server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}

	log.Info("server stopped")
}
