package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shaonsikder1952/Sentinel/internal/cli"
	"github.com/shaonsikder1952/Sentinel/internal/config"
	internal_http "github.com/shaonsikder1952/Sentinel/internal/http"
	"github.com/shaonsikder1952/Sentinel/internal/log"
	internal_storage "github.com/shaonsikder1952/Sentinel/internal/storage"
	"github.com/shaonsikder1952/Sentinel/pkg/service"
	"github.com/shaonsikder1952/Sentinel/pkg/storage"
)

var rootCmd = &cobra.Command{Use: "sentinel"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine: scheduler plus control-plane API",
	Run: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.GetLogger().Debugf("No .env file loaded: %v", err)
		}

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			log.GetLogger().Errorf("Failed to load config: %v", err)
			os.Exit(1)
		}

		store, err := initStore(cfg)
		if err != nil {
			log.GetLogger().Errorf("Failed to initialize storage: %v", err)
			os.Exit(1)
		}
		defer store.Close()

		memory, err := service.NewMemoryService(store, log.GetLogger())
		if err != nil {
			log.GetLogger().Errorf("Failed to initialize memory service: %v", err)
			os.Exit(1)
		}
		manager := service.NewTaskManager(memory, log.GetLogger())

		scheduler := service.NewScheduler(manager, log.GetLogger())
		scheduler.SetTickInterval(time.Duration(cfg.Scheduler.TickSeconds) * time.Second)
		scheduler.Start()
		defer scheduler.Stop()

		log.GetLogger().Infof("Sentinel engine started")
		if err := internal_http.StartServer(cfg.HTTP.Port, manager, scheduler); err != nil {
			log.GetLogger().Errorf("Server error: %v", err)
			os.Exit(1)
		}
	},
}

func initStore(cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return internal_storage.NewPostgresStore(cfg.Storage.DSN)
	default:
		return internal_storage.NewFileStore(cfg.Storage.Path)
	}
}

func main() {
	serveCmd.Flags().String("config", "sentinel.yaml", "Path to the config file")
	rootCmd.AddCommand(serveCmd)
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
