package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gzentall/ocrstore/internal/config"
	"github.com/gzentall/ocrstore/internal/elasticsearch"
	"github.com/gzentall/ocrstore/internal/identity"
	"github.com/gzentall/ocrstore/internal/llm"
	"github.com/gzentall/ocrstore/internal/pipeline"
	"github.com/gzentall/ocrstore/internal/storage"
	"github.com/gzentall/ocrstore/internal/store"
	"github.com/gzentall/ocrstore/internal/summarizer"
)

var (
	cfgFile  string
	storeDir string
	verbose  bool
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ocrstore",
	Short: "ocrstore: a local store for translated OCR documents",
	Long: `ocrstore keeps translated OCR documents on disk together with an index
of the people they mention. Different spellings of a name are merged into
one person by fuzzy matching.

Commands:
  add      Store a document (JSON payload or OCR/translation text files)
  get      Show a stored document
  list     List stored documents
  search   Search documents by title and summary, or full text
  update   Change fields of a document
  delete   Delete a document
  people   Inspect and edit the people index
  stats    Show store statistics
  export   Export the index as JSON, a report, CSV or a table
  import   Import a batch from a directory or S3 prefix
  backup   Back the store up to S3, or restore it
  doctor   Check and repair store consistency
  reindex  Rebuild the Elasticsearch mirror
  serve    Start the MCP server`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store", "", "store directory (overrides store.dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/ocrstore")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// OCRSTORE_STORE_DIR -> store.dir
	viper.SetEnvPrefix("OCRSTORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	for _, key := range []string{
		"store.dir",
		"store.target_language",
		"identity.merge_threshold",
		"identity.search_threshold",
		"llm.enabled",
		"llm.socket_path",
		"llm.model",
		"llm.max_tokens",
		"elasticsearch.enabled",
		"elasticsearch.index",
		"elasticsearch.username",
		"elasticsearch.password",
		"backup.endpoint",
		"backup.bucket",
		"backup.access_key_id",
		"backup.secret_access_key",
		"backup.use_ssl",
		"backup.prefix",
		"mcp.name",
		"mcp.version",
	} {
		viper.BindEnv(key, "OCRSTORE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("OCRSTORE_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}

	if storeDir != "" {
		cfg.Store.Dir = storeDir
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newSummarizer builds the summarizer chain: the model first when enabled,
// then the rule-based fallback.
func newSummarizer() (summarizer.Summarizer, error) {
	var primary summarizer.Summarizer
	if cfg.LLM.Enabled {
		client, err := llm.New(llm.Config{
			SocketPath: cfg.LLM.SocketPath,
			Model:      cfg.LLM.Model,
			MaxTokens:  cfg.LLM.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		slog.Info("LLM summaries enabled", "model", cfg.LLM.Model)
		primary = client
	}
	return summarizer.NewChain(primary, summarizer.NewFallback()), nil
}

// newPipeline builds the enrichment pipeline.
func newPipeline(s summarizer.Summarizer) *pipeline.Pipeline {
	return pipeline.New(pipeline.Config{
		Summarizer:     s,
		TargetLanguage: cfg.Store.TargetLanguage,
		Logger:         slog.Default(),
	})
}

// newESClient creates the Elasticsearch client, or nil when the mirror is
// disabled.
func newESClient() (*elasticsearch.Client, error) {
	if !cfg.Elasticsearch.Enabled {
		return nil, nil
	}
	client, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	return client, nil
}

// newStorageClient creates the S3 client used for backups and imports.
func newStorageClient() (*storage.Client, error) {
	if cfg.Backup.Endpoint == "" {
		return nil, fmt.Errorf("backup storage not configured - check config file")
	}
	return storage.New(storage.Config{
		Endpoint:        cfg.Backup.Endpoint,
		Bucket:          cfg.Backup.Bucket,
		AccessKeyID:     cfg.Backup.AccessKeyID,
		SecretAccessKey: cfg.Backup.SecretAccessKey,
		UseSSL:          cfg.Backup.UseSSL,
	})
}

// openStore opens the configured store with the summarizer chain and, when
// enabled, the Elasticsearch mirror subscribed to its events.
func openStore(ctx context.Context) (*store.Store, error) {
	sum, err := newSummarizer()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Dir, store.Options{
		Identity: identity.Config{
			MergeThreshold:  cfg.Identity.MergeThreshold,
			SearchThreshold: cfg.Identity.SearchThreshold,
		},
		Summarizer: sum,
		Logger:     slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", cfg.Store.Dir, err)
	}

	es, err := newESClient()
	if err != nil {
		st.Close()
		return nil, err
	}
	if es != nil {
		if err := es.CreateIndex(ctx); err != nil {
			slog.Warn("full-text index unavailable", "error", err)
		} else {
			st.Subscribe(elasticsearch.NewIndexer(es, slog.Default()).Handle)
		}
	}
	return st, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
