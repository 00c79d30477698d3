// afribac-ai is the AI backend server for the document editor.
//
// It exposes two endpoints: a streaming transcription endpoint used by the
// document extraction pipeline, and a completion endpoint used by the inline
// ghost-text engine. Provider and model are resolved per request from the
// configured API keys; every call is recorded in a local SQLite usage log.
//
// Configuration:
//
// An optional YAML configuration file:
//
//	addr: ":8090"
//	db_path: "ai_usage.db"
//	log_level: "info"
//	ai_config: "ai_services.yml"
//
// The ai_config file overrides per-service provider, model, temperature and
// token budget; see pkg/provider.LoadConfigFile for its format.
//
// Usage:
//
//	afribac-ai [-config config.yml] [-addr :8090] [-db ai_usage.db]
//
// Authentication:
//
// Provider keys are read from the OPENAI_API_KEY and GEMINI_API_KEY
// environment variables; a .env file in the working directory is loaded if
// present. At least one key must be set or every request is rejected
// with 401.
//
// Example:
//
//	export GEMINI_API_KEY=...
//	afribac-ai -addr :8090 -db /var/lib/afribac/ai_usage.db
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/aibackend"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/provider"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/usagelog"
)

type yamlConfig struct {
	Addr         string `yaml:"addr"`
	DBPath       string `yaml:"db_path"`
	LogLevel     string `yaml:"log_level"`
	AIConfigPath string `yaml:"ai_config"`
}

// loadConfig reads the optional YAML configuration file.
func loadConfig(path string) (yamlConfig, error) {
	cfg := yamlConfig{Addr: ":8090", DBPath: "ai_usage.db", LogLevel: "info"}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "Path to the config YAML file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Path to the SQLite usage database (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if provider.CredentialsFromEnv().None() {
		log.Warn("no provider API key configured; all requests will be rejected")
	}

	usage, err := usagelog.NewSQLite(cfg.DBPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening usage database: %v\n", err)
		os.Exit(1)
	}
	defer usage.Close()

	server := aibackend.NewServer(log, usage, nil)
	if cfg.AIConfigPath != "" {
		configs, err := provider.LoadConfigFile(cfg.AIConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading AI config: %v\n", err)
			os.Exit(1)
		}
		server.UseConfigs(configs)
	}
	log.WithField("addr", cfg.Addr).Info("starting AI backend")
	if err := http.ListenAndServe(cfg.Addr, server.Router()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
