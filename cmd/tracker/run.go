package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"media-tracker/internal/pipeline"
)

type runOptions struct {
	keywords string
	leaders  string
	start    string
	end      string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search, fetch and classify articles for the given keywords",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTracker(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.keywords, "keywords", "", "comma-separated search keywords (required)")
	f.StringVar(&opts.leaders, "leaders", "", "comma-separated leader names")
	f.StringVar(&opts.start, "start", "", "start date YYYY-MM-DD (required)")
	f.StringVar(&opts.end, "end", "", "end date YYYY-MM-DD (required)")
	f.String("out", "", "write both result sets as JSON to this file")
	f.String("xlsx", "", "write an Excel report to this file")
	f.Bool("notion", false, "clip matched articles to Notion")
	f.Bool("email", false, "send the run report by email")
	f.String("backend", pipeline.BackendHTML, "search backend (html|rss)")
	f.Int("max-pages", 5, "maximum search result pages per keyword")
	_ = cmd.MarkFlagRequired("keywords")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	_ = viper.BindPFlag("output.out", f.Lookup("out"))
	_ = viper.BindPFlag("output.xlsx", f.Lookup("xlsx"))
	_ = viper.BindPFlag("output.notion_clip", f.Lookup("notion"))
	_ = viper.BindPFlag("email.send", f.Lookup("email"))
	_ = viper.BindPFlag("search.backend", f.Lookup("backend"))
	_ = viper.BindPFlag("search.max_pages", f.Lookup("max-pages"))
	return cmd
}

func runTracker(ctx context.Context, opts *runOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	start, err := time.Parse(pipeline.DateLayout, opts.start)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(pipeline.DateLayout, opts.end)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	categories, err := loadCategories(cfg.CategoryFile)
	if err != nil {
		return err
	}

	keywords := pipeline.ParseList(opts.keywords)
	tracker := pipeline.NewTracker(cfg, categories)
	res, err := tracker.Run(ctx, keywords, pipeline.ParseList(opts.leaders), start, end)
	if err != nil {
		return err
	}

	if cfg.Output.OutFile != "" {
		if err := pipeline.WriteJSONFile(cfg.Output.OutFile, res); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Results written to %s\n", cfg.Output.OutFile)
	} else {
		pipeline.RenderTables(os.Stdout, res)
	}

	if cfg.Output.XLSXFile != "" {
		if err := pipeline.WriteXLSX(cfg.Output.XLSXFile, res); err != nil {
			return fmt.Errorf("writing xlsx: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Excel report written to %s\n", cfg.Output.XLSXFile)
	}

	if cfg.Output.NotionClip {
		if err := clipToNotion(ctx, cfg.Output, categories, res.Matched); err != nil {
			return err
		}
	}

	if cfg.Email.SendEmail {
		sender, err := pipeline.NewEmailSender(os.Getenv("EMAIL_FROM"), os.Getenv("EMAIL_PASSWORD"), os.Getenv("EMAIL_TO"))
		if err != nil {
			return err
		}
		if err := sender.SendRunReport(ctx, keywords, res); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Run report sent by email")
	}
	return nil
}

// clipToNotion はマッチした記事をNotionに保存する
// データベースIDがなければ親ページの下に作成し、IDを.envに保存する
func clipToNotion(ctx context.Context, out pipeline.OutputConfig, categories []pipeline.Category, records []pipeline.ArticleRecord) error {
	token := os.Getenv("NOTION_TOKEN")
	if token == "" {
		return fmt.Errorf("NOTION_TOKEN environment variable is required for Notion integration")
	}
	clipper, err := pipeline.NewNotionClipper(token, out.NotionDatabaseID)
	if err != nil {
		return err
	}

	if out.NotionDatabaseID == "" {
		if err := clipper.CreateDatabase(ctx, out.NotionPageID, categories); err != nil {
			return err
		}
		if err := saveEnv(".env", "NOTION_DATABASE_ID", clipper.DatabaseID()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save database ID to .env: %v\nPlease add manually:\nNOTION_DATABASE_ID=%s\n", err, clipper.DatabaseID())
		}
	}

	if failed := clipper.ClipAll(ctx, records); failed > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d articles could not be clipped\n", failed)
	}
	return nil
}

// saveEnv は.envファイルのキーを追加・更新する（ファイルがなければ作成）
func saveEnv(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		env = map[string]string{}
	}
	env[key] = value
	return godotenv.Write(env, path)
}
