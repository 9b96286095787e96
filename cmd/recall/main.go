// Command recall is a terminal client for the conversational memory
// engine: an interactive chat REPL plus memory management subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/konuslabs/recall/config"
	"github.com/konuslabs/recall/engine"
	"github.com/konuslabs/recall/llm"
	"github.com/konuslabs/recall/memory"
	"github.com/konuslabs/recall/memory/encoder/lexical"
	"github.com/konuslabs/recall/memory/store/sqlite"
)

var (
	configPath string
	userID     string
	scopeID    string
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Chat with long-term conversational memory",
	Long:  "recall is a stateless chat client whose memory layer distills, stores, and retrieves what matters across conversations.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "recall.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default", "User ID owning the memories")
	rootCmd.PersistentFlags().StringVarP(&scopeID, "scope", "s", "default", "Memory scope ID")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// buildEngine wires the full stack from configuration. The encoder is
// fixed here, once, for the life of the process.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key: set RECALL_API_KEY or llm.api_key")
	}

	var clientOpts []llm.ClientOption
	if cfg.LLM.Model != "" {
		clientOpts = append(clientOpts, llm.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.Timeout > 0 {
		clientOpts = append(clientOpts, llm.WithTimeout(cfg.LLM.Timeout))
	}
	completer := llm.NewBreaker(llm.NewClient(cfg.LLM.APIKey, clientOpts...))

	enc, err := buildEncoder(cfg)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	worker := memory.NewSummaryWorker(
		memory.NewSummarizer(completer),
		store,
		enc,
		memory.WorkerConfig{Workers: cfg.Memory.Workers, BatchSize: cfg.Memory.BatchSize},
	)

	opts := []engine.Option{
		engine.WithBatchSize(cfg.Memory.BatchSize),
		engine.WithKeepSize(cfg.Memory.KeepSize),
		engine.WithTopK(cfg.Memory.TopK),
		engine.WithWorker(worker),
		engine.WithRetention(memory.NewRetentionJob(store, cfg.Memory.RetentionMonths, 0)),
	}
	if cfg.LLM.SystemPrompt != "" {
		opts = append(opts, engine.WithSystemPrompt(cfg.LLM.SystemPrompt))
	}

	return engine.New(completer, store, enc, opts...), nil
}

func buildEncoder(cfg *config.Config) (memory.Encoder, error) {
	var inner memory.Encoder
	switch cfg.Memory.Encoder {
	case "onnx":
		enc, err := newONNXEncoder(cfg)
		if err != nil {
			return nil, err
		}
		inner = enc
	default:
		inner = lexical.New(0)
	}
	return memory.NewCachedEncoder(inner, 0)
}
