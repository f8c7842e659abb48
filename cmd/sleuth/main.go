package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/osintlab/sleuth/config"
	"github.com/osintlab/sleuth/internal/agent"
	"github.com/osintlab/sleuth/internal/agent/telemetry"
	"github.com/osintlab/sleuth/internal/evidence"
	"github.com/osintlab/sleuth/internal/ingest"
	"github.com/osintlab/sleuth/internal/llm"
	"github.com/osintlab/sleuth/internal/news"
	srv "github.com/osintlab/sleuth/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "sleuth"}

	root.AddCommand(serveCmd(), migrateCmd(), queryCmd(), newsCmd(), ingestCmd(), statsCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = os.Getenv("SLEUTH_HTTP_ADDR")
			}
			return srv.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	var dir string
	var direction string
	var steps int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig()
			if err != nil {
				return err
			}
			return srv.Migrate(dir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "file://migrations", "migrations source")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}

// pipeline builds the query agents the CLI commands share.
func pipeline(ctx context.Context, cfg *appconfig.Config) (*agent.DocumentAgent, *agent.NewsAgent, *agent.MultiAgent, *evidence.Store, error) {
	st, err := evidence.NewWithDSN(ctx, cfg.Storage.Postgres.DSN(), cfg.Pipeline.SimilarityMetric)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	provider := llm.NewOpenAIProvider(cfg.LLM, tele)
	synth := agent.NewSynthesizer(provider, cfg.Pipeline.AllowLocalOnly)
	docs := agent.NewDocumentAgent(agent.NewEvidenceSearcher(st, provider, cfg.Pipeline.RelevanceCutoff), synth, tele)
	newsAgent := agent.NewNewsAgent(news.NewClient(cfg.Sources.NewsAPI), synth, tele)
	multi := agent.NewMultiAgent(docs, newsAgent, synth, tele)
	return docs, newsAgent, multi, st, nil
}

func queryCmd() *cobra.Command {
	var source string
	var topK int
	var daysBack int
	var useDocuments bool
	var useNews bool
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run a query through the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if cfg.Pipeline.QueryTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Pipeline.QueryTimeout)
				defer cancel()
			}
			docs, newsAgent, multi, st, err := pipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			query := strings.Join(args, " ")
			opts := agent.QueryOptions{
				Temperature:   cfg.LLM.Temperature,
				MaxTokens:     cfg.LLM.MaxTokens,
				TopK:          topK,
				MaxResults:    cfg.Pipeline.MaxNewsResults,
				DaysBack:      daysBack,
				Language:      cfg.Sources.NewsAPI.Language,
				SkipDocuments: !useDocuments,
				SkipNews:      !useNews,
			}

			var out interface{}
			switch source {
			case "documents":
				out, err = docs.Query(ctx, query, opts)
			case "news":
				out, err = newsAgent.Query(ctx, query, opts)
			case "combined":
				out, err = multi.Query(ctx, query, opts)
			default:
				return fmt.Errorf("unknown source %q (documents, news or combined)", source)
			}
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&source, "source", "combined", "documents, news or combined")
	cmd.Flags().IntVar(&topK, "top-k", 0, "evidence chunks to retrieve (0 = config default)")
	cmd.Flags().IntVar(&daysBack, "days-back", 0, "news window in days (0 = config default)")
	cmd.Flags().BoolVar(&useDocuments, "use-documents", true, "run the document loop on the combined path")
	cmd.Flags().BoolVar(&useNews, "use-news", true, "run the news loop on the combined path")
	return cmd
}

func newsCmd() *cobra.Command {
	var category string
	var country string
	var max int
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Fetch top headlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig()
			if err != nil {
				return err
			}
			client := news.NewClient(cfg.Sources.NewsAPI)
			articles, err := client.TopHeadlines(cmd.Context(), category, country, max)
			if err != nil {
				return err
			}
			return printJSON(articles)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "headline category (business, technology, ...)")
	cmd.Flags().StringVar(&country, "country", "us", "two-letter country code")
	cmd.Flags().IntVar(&max, "max", 10, "maximum articles")
	return cmd
}

func ingestCmd() *cobra.Command {
	var name string
	var fromURL string
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a text file or URL into the evidence store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := evidence.NewWithDSN(ctx, cfg.Storage.Postgres.DSN(), cfg.Pipeline.SimilarityMetric)
			if err != nil {
				return err
			}
			defer st.Close()

			provider := llm.NewOpenAIProvider(cfg.LLM, telemetry.NewTelemetry(cfg.Telemetry))
			ing := ingest.NewIngestor(st, provider, cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap, cfg.Pipeline.EmbeddingDim)

			if fromURL != "" {
				doc, count, err := ing.IngestURL(ctx, fromURL)
				if err != nil {
					return err
				}
				fmt.Printf("ingested %q: %d chunks\n", doc, count)
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("a file path or --url is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = args[0]
			}
			count, err := ing.IngestText(ctx, name, string(data), nil)
			if err != nil {
				return err
			}
			fmt.Printf("ingested %q: %d chunks\n", name, count)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "document name (defaults to file path)")
	cmd.Flags().StringVar(&fromURL, "url", "", "ingest a web page instead of a file")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show evidence store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig()
			if err != nil {
				return err
			}
			st, err := evidence.NewWithDSN(cmd.Context(), cfg.Storage.Postgres.DSN(), cfg.Pipeline.SimilarityMetric)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
