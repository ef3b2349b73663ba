// Command reviewctl reviews a unified diff read from stdin or a file,
// without talking to any PR provider, and prints the result as JSON or
// human-readable text.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/chunker"
	"github.com/miracodeai/mira/internal/diffreview/domain"
	"github.com/miracodeai/mira/internal/diffreview/engine"
	"github.com/miracodeai/mira/internal/diffreview/llm"
	"github.com/miracodeai/mira/internal/diffreview/prompt"
)

func main() {
	diffPath := flag.String("file", "", "path to a unified diff file (defaults to stdin)")
	jsonOutput := flag.Bool("json", false, "print the result as JSON instead of text")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadConfig()
	if cfg.LLM.APIKey == "" {
		fmt.Fprintln(os.Stderr, "LLM_API_KEY is required")
		os.Exit(1)
	}

	diffText, err := readDiff(*diffPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read diff: %v\n", err)
		os.Exit(1)
	}

	oaClient := openai.NewClient(option.WithAPIKey(cfg.LLM.APIKey), option.WithBaseURL(cfg.LLM.Endpoint))
	llmClient := llm.NewChat(&oaClient, cfg.LLM.Model, cfg.LLM.FallbackModel, cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff)
	promptBuilder := prompt.NewBuilder(cfg.Prompts.Dir)
	counter := chunker.NewTiktokenCounter("cl100k_base")

	reviewEngine := engine.New(
		cfg.Filter, cfg.Review, cfg.LLM.MaxContextTokens,
		llmClient, promptBuilder, counter, nil, nil,
		cfg.Bot.Name, false,
	)

	result, err := reviewEngine.ReviewDiff(context.Background(), diffText)
	if err != nil {
		slog.Error("review failed", "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
			os.Exit(1)
		}
	} else {
		printText(result)
	}

	if hasBlocker(result) {
		os.Exit(1)
	}
}

func readDiff(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printText(result *domain.ReviewResult) {
	if result.Summary != "" {
		fmt.Println(result.Summary)
		fmt.Println()
	}
	for _, c := range result.Comments {
		fmt.Printf("%s %s:%d %s\n  %s\n\n", c.Severity.Emoji(), c.Path, c.Line, c.Title, c.Body)
	}
	fmt.Printf("%d file(s) reviewed, %d comment(s)\n", result.ReviewedFiles, len(result.Comments))
}

func hasBlocker(result *domain.ReviewResult) bool {
	for _, c := range result.Comments {
		if c.Severity == domain.SeverityBlocker {
			return true
		}
	}
	return false
}
