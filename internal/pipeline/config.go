// =============================================================================
// config.go - トラッカー設定
// =============================================================================
//
// このファイルは設定構造体とデフォルト値、検証処理を定義します。
// フラグ・環境変数の読み込み自体は cmd/tracker（cobra + viper）と
// cmd/lambda/track（環境変数）で行います。
//
// 【設定グループ】
//   - SearchConfig:    ニュース検索（ページング）設定
//   - FetchConfig:     記事取得設定
//   - OutputConfig:    出力設定（JSON / XLSX / Notion）
//   - EmailModeConfig: メール送信設定
//
// =============================================================================
package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// 設定構造体
// =============================================================================

// TrackerConfig はトラッカーの全設定を保持する
type TrackerConfig struct {
	Search SearchConfig    `mapstructure:"search"`
	Fetch  FetchConfig     `mapstructure:"fetch"`
	Output OutputConfig    `mapstructure:"output"`
	Email  EmailModeConfig `mapstructure:"email"`

	// CategoryFile が指定された場合、カテゴリ定義をYAMLから読み込む
	CategoryFile string `mapstructure:"category_file"`

	// LogLevel は debug|info|warn|error
	LogLevel string `mapstructure:"log_level"`
}

// SearchConfig はニュース検索に関する設定
type SearchConfig struct {
	// Backend は "html"（a.title アンカー）または "rss"（format=rss）
	Backend string `mapstructure:"backend"`

	// Endpoint は検索エンドポイント（q と first を付与する）
	Endpoint string `mapstructure:"endpoint"`

	// PageSize はページあたりの件数（offset = page × PageSize）
	PageSize int `mapstructure:"page_size"`

	// MaxPages はキーワードあたりの最大ページ数
	MaxPages int `mapstructure:"max_pages"`

	DelayMin time.Duration `mapstructure:"delay_min"`
	DelayMax time.Duration `mapstructure:"delay_max"`

	// Timeout は検索ページ1回あたりのタイムアウト
	Timeout time.Duration `mapstructure:"timeout"`
}

// Delay は待機時間の範囲を返す
func (c *SearchConfig) Delay() DelayRange {
	return DelayRange{Min: c.DelayMin, Max: c.DelayMax}
}

// FetchConfig は記事取得に関する設定
type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`

	// UserAgent はフォールバック取得で使う汎用ヘッダー
	UserAgent string `mapstructure:"user_agent"`

	// MaxBodyBytes はレスポンスボディの読み込み上限
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// OutputConfig は出力に関する設定
type OutputConfig struct {
	// OutFile が指定された場合、JSONをファイルに出力（空の場合はstdoutに表を出力）
	OutFile string `mapstructure:"out"`

	// XLSXFile が指定された場合、Excelレポートを書き出す
	XLSXFile string `mapstructure:"xlsx"`

	// NotionClip がtrueの場合、マッチした記事をNotionに保存
	NotionClip bool `mapstructure:"notion_clip"`

	NotionPageID     string `mapstructure:"notion_page_id"`
	NotionDatabaseID string `mapstructure:"notion_database_id"`
}

// EmailModeConfig はメール送信モードに関する設定
//
// 【注意】email.goのEmailConfig（SMTP設定）とは別物
type EmailModeConfig struct {
	SendEmail bool `mapstructure:"send"`
}

// =============================================================================
// デフォルト値
// =============================================================================

// DefaultSearchEndpoint はBing Newsの検索エンドポイント
const DefaultSearchEndpoint = "https://www.bing.com/news/search"

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() TrackerConfig {
	return TrackerConfig{
		Search: SearchConfig{
			Backend:  BackendHTML,
			Endpoint: DefaultSearchEndpoint,
			PageSize: 10,
			MaxPages: 5,
			DelayMin: 2 * time.Second,
			DelayMax: 4 * time.Second,
			Timeout:  10 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      15 * time.Second,
			UserAgent:    userAgents[0],
			MaxBodyBytes: 10 << 20,
		},
		LogLevel: "info",
	}
}

// =============================================================================
// 検証
// =============================================================================

var errInvalidConfig = errors.New("invalid config")

// Validate は設定値を検証する
func (c *TrackerConfig) Validate() error {
	switch c.Search.Backend {
	case BackendHTML, BackendRSS:
	default:
		return fmt.Errorf("%w: unsupported search backend %q", errInvalidConfig, c.Search.Backend)
	}
	if strings.TrimSpace(c.Search.Endpoint) == "" {
		return fmt.Errorf("%w: search endpoint is empty", errInvalidConfig)
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive", errInvalidConfig)
	}
	if c.Search.MaxPages <= 0 {
		return fmt.Errorf("%w: max pages must be positive", errInvalidConfig)
	}
	if c.Search.DelayMin < 0 || c.Search.DelayMax < c.Search.DelayMin {
		return fmt.Errorf("%w: delay range [%s, %s]", errInvalidConfig, c.Search.DelayMin, c.Search.DelayMax)
	}
	if c.Search.Timeout <= 0 || c.Fetch.Timeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", errInvalidConfig)
	}
	if c.Output.NotionClip && c.Output.NotionDatabaseID == "" && c.Output.NotionPageID == "" {
		return fmt.Errorf("%w: notion clipping needs a database ID or a parent page ID", errInvalidConfig)
	}
	return nil
}

// ParseList はカンマ区切りの入力を分割し、空要素を除去する
//
// 使用例:
//
//	ParseList("OMG India, Omnicom Media Group,, ")  // ["OMG India", "Omnicom Media Group"]
func ParseList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
