package config

import (
	"github.com/gzentall/ocrstore/internal/identity"
	"github.com/gzentall/ocrstore/internal/llm"
)

// Config holds all application configuration.
type Config struct {
	Store         Store         `mapstructure:"store"`
	Identity      Identity      `mapstructure:"identity"`
	LLM           LLM           `mapstructure:"llm"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Backup        Backup        `mapstructure:"backup"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Store holds document store configuration.
type Store struct {
	Dir            string `mapstructure:"dir"`
	TargetLanguage string `mapstructure:"target_language"`
}

// Identity holds the similarity thresholds used to match person names.
type Identity struct {
	MergeThreshold  int `mapstructure:"merge_threshold"`
	SearchThreshold int `mapstructure:"search_threshold"`
}

// LLM holds configuration for model-generated summaries and person lists.
type LLM struct {
	Enabled    bool   `mapstructure:"enabled"`
	SocketPath string `mapstructure:"socket_path"`
	Model      string `mapstructure:"model"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// Elasticsearch holds ES connection configuration for the full-text mirror.
type Elasticsearch struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Backup holds S3/MinIO storage configuration for backups and imports.
type Backup struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Prefix          string `mapstructure:"prefix"` // empty means backups/<timestamp>
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Store: Store{
			Dir:            "ocr_storage",
			TargetLanguage: "English",
		},
		Identity: Identity{
			MergeThreshold:  identity.DefaultMergeThreshold,
			SearchThreshold: identity.DefaultSearchThreshold,
		},
		LLM: LLM{
			Enabled:    false, // Disabled by default, requires DMR setup
			SocketPath: "",    // User must provide their Docker socket path
			Model:      "ai/gemma3",
			MaxTokens:  llm.DefaultMaxTokens,
		},
		Elasticsearch: Elasticsearch{
			Enabled:   false,
			Addresses: []string{"http://localhost:9200"},
			Index:     "ocrstore-documents",
		},
		Backup: Backup{
			Endpoint:        "localhost:9000",
			Bucket:          "ocrstore",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		MCP: MCP{
			Name:    "ocrstore",
			Version: "1.0.0",
		},
	}
}
