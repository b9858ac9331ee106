// =============================================================================
// Lambda: track-media
// =============================================================================
//
// イベントで受け取ったキーワード・期間でトラッカーを実行し、
// 2つの結果テーブルを返すLambda関数
//
// イベント:
//
//	{"keywords": ["OMG India"], "leaders": ["Jane Doe"],
//	 "start_date": "2024-01-01", "end_date": "2024-12-31"}
//
// 環境変数:
//   - SEARCH_BACKEND:     html | rss (デフォルト: html)
//   - MAX_PAGES:          キーワードあたりの最大ページ数 (デフォルト: 5)
//   - CATEGORY_FILE:      カテゴリ定義のYAML (任意)
//   - LOG_LEVEL:          ログレベル (デフォルト: info)
//   - NOTION_TOKEN:       Notion API Token (任意、設定時はクリップする)
//   - NOTION_DATABASE_ID: NotionデータベースID (NOTION_TOKEN設定時は必須)
//   - EMAIL_FROM:         レポート送信元 (任意)
//   - EMAIL_PASSWORD:     Gmailアプリパスワード (任意)
//   - EMAIL_TO:           レポート送信先 (任意)
//
// =============================================================================
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"media-tracker/internal/pipeline"
)

// LambdaConfig は環境変数から読み込む設定
type LambdaConfig struct {
	Tracker          pipeline.TrackerConfig
	NotionToken      string
	NotionDatabaseID string
	EmailFrom        string
	EmailPassword    string
	EmailTo          string
}

// Event はLambdaの入力
type Event struct {
	Keywords  []string `json:"keywords"`
	Leaders   []string `json:"leaders"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// Response はLambdaレスポンス
type Response struct {
	StatusCode      int                         `json:"statusCode"`
	Message         string                      `json:"message"`
	RunID           string                      `json:"runId,omitempty"`
	MatchedCount    int                         `json:"matchedCount"`
	UnresolvedCount int                         `json:"unresolvedCount"`
	Clipped         int                         `json:"clipped"`
	Matched         []pipeline.ArticleRecord    `json:"matched"`
	Unresolved      []pipeline.UnresolvedRecord `json:"unresolved"`
}

// newTracker はテストで差し替える
var newTracker = pipeline.NewTracker

// Handler はLambdaのメインハンドラー
func Handler(ctx context.Context, event Event) (Response, error) {
	cfg := loadConfig()
	if l, err := pipeline.NewLogger(cfg.Tracker.LogLevel, "json"); err == nil {
		pipeline.SetLogger(l)
	} else {
		pipeline.SetLogger(zap.NewNop())
	}

	start, end, err := parseRange(event)
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}
	if err := cfg.validate(); err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, err
	}

	categories := pipeline.DefaultCategories
	if cfg.Tracker.CategoryFile != "" {
		if categories, err = pipeline.LoadCategories(cfg.Tracker.CategoryFile); err != nil {
			return Response{StatusCode: 500, Message: err.Error()}, err
		}
	}

	res, err := newTracker(cfg.Tracker, categories).Run(ctx, pipeline.ParseList(joinList(event.Keywords)), pipeline.ParseList(joinList(event.Leaders)), start, end)
	if err != nil {
		status := 500
		if errors.Is(err, pipeline.ErrNoKeywords) || errors.Is(err, pipeline.ErrInvalidDateRange) {
			status = 400
		}
		return Response{StatusCode: status, Message: err.Error()}, err
	}

	resp := Response{
		StatusCode:      200,
		Message:         fmt.Sprintf("Found %d relevant articles, %d articles could not be accessed", len(res.Matched), len(res.Unresolved)),
		RunID:           res.RunID,
		MatchedCount:    len(res.Matched),
		UnresolvedCount: len(res.Unresolved),
		Matched:         res.Matched,
		Unresolved:      res.Unresolved,
	}

	if cfg.NotionToken != "" && len(res.Matched) > 0 {
		clipper, err := pipeline.NewNotionClipper(cfg.NotionToken, cfg.NotionDatabaseID)
		if err != nil {
			return resp, err
		}
		resp.Clipped = len(res.Matched) - clipper.ClipAll(ctx, res.Matched)
	}

	sendReport(ctx, cfg, event.Keywords, res)
	return resp, nil
}

func parseRange(event Event) (time.Time, time.Time, error) {
	start, err := time.Parse(pipeline.DateLayout, event.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", event.StartDate, err)
	}
	end, err := time.Parse(pipeline.DateLayout, event.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", event.EndDate, err)
	}
	return start, end, nil
}

// joinList はイベントのキーワード配列をParseListで正規化できる形にする
// （["a, b", "c"] のような入力も許容する）
func joinList(items []string) string {
	return strings.Join(items, ",")
}

// loadConfig は環境変数から設定を読み込む
func loadConfig() LambdaConfig {
	tc := pipeline.DefaultConfig()
	if b := os.Getenv("SEARCH_BACKEND"); b != "" {
		tc.Search.Backend = b
	}
	if mp := os.Getenv("MAX_PAGES"); mp != "" {
		if val, err := strconv.Atoi(mp); err == nil && val > 0 {
			tc.Search.MaxPages = val
		}
	}
	if lv := os.Getenv("LOG_LEVEL"); lv != "" {
		tc.LogLevel = lv
	}
	tc.CategoryFile = os.Getenv("CATEGORY_FILE")

	return LambdaConfig{
		Tracker:          tc,
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		EmailFrom:        os.Getenv("EMAIL_FROM"),
		EmailPassword:    os.Getenv("EMAIL_PASSWORD"),
		EmailTo:          os.Getenv("EMAIL_TO"),
	}
}

var errNotionDatabaseRequired = errors.New("NOTION_DATABASE_ID is required when NOTION_TOKEN is set")

// validate はトラッカー設定とNotion設定の組み合わせを検証する
func (c LambdaConfig) validate() error {
	if err := c.Tracker.Validate(); err != nil {
		return err
	}
	if c.NotionToken != "" && c.NotionDatabaseID == "" {
		return errNotionDatabaseRequired
	}
	return nil
}

// sendReport はEMAIL_FROM, EMAIL_PASSWORD, EMAIL_TO が設定されている場合のみ送信する
func sendReport(ctx context.Context, cfg LambdaConfig, keywords []string, res *pipeline.Result) {
	if cfg.EmailFrom == "" || cfg.EmailPassword == "" || cfg.EmailTo == "" {
		return
	}
	sender, err := pipeline.NewEmailSender(cfg.EmailFrom, cfg.EmailPassword, cfg.EmailTo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create email sender: %v\n", err)
		return
	}
	if err := sender.SendRunReport(ctx, keywords, res); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send run report: %v\n", err)
	}
}

func main() {
	lambda.Start(Handler)
}
