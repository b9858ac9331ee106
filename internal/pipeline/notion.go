// =============================================================================
// notion.go - Notionへのクリッピング
// =============================================================================
//
// マッチした記事（ArticleRecord）をNotionデータベースに保存します。
//
// 【必要な環境変数】
//
//	NOTION_TOKEN       - Notion Integration Token
//	NOTION_DATABASE_ID - 既存のデータベースID（省略時は NOTION_PAGE_ID の下に作成）
//	NOTION_PAGE_ID     - データベースを新規作成する親ページID
//
// 【注意】Notionのリッチテキストは1ブロック2000文字まで
//
// =============================================================================
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

const notionTextLimit = 2000

var errNotionDatabaseUnset = errors.New("notion database ID not set")

// NotionClipper はArticleRecordをNotionに保存する
type NotionClipper struct {
	client *notionapi.Client
	dbID   notionapi.DatabaseID
}

// NewNotionClipper はNotionクライアントを生成する
func NewNotionClipper(token, databaseID string) (*NotionClipper, error) {
	if token == "" {
		return nil, fmt.Errorf("NOTION_TOKEN is required")
	}
	nc := &NotionClipper{client: notionapi.NewClient(notionapi.Token(token))}
	if databaseID != "" {
		nc.dbID = notionapi.DatabaseID(databaseID)
	}
	return nc, nil
}

// DatabaseID は保存先のデータベースIDを返す
func (nc *NotionClipper) DatabaseID() string { return string(nc.dbID) }

// CreateDatabase は親ページの下に記事用データベースを作成する
func (nc *NotionClipper) CreateDatabase(ctx context.Context, pageID string, categories []Category) error {
	if pageID == "" {
		return fmt.Errorf("NOTION_PAGE_ID is required to create a new database")
	}

	options := make([]notionapi.Option, 0, len(categories)+1)
	seen := map[string]bool{}
	for _, c := range append(categories, Category{Label: DefaultCategory}) {
		if seen[c.Label] {
			continue
		}
		seen[c.Label] = true
		options = append(options, notionapi.Option{Name: c.Label})
	}

	req := &notionapi.DatabaseCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(pageID),
		},
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: "Media Tracker"}}},
		Properties: notionapi.PropertyConfigs{
			"Title":            notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle},
			"URL":              notionapi.URLPropertyConfig{Type: notionapi.PropertyConfigTypeURL},
			"Published Date":   notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate},
			"Event Date":       notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
			"Leader Mentioned": notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
			"Category": notionapi.SelectPropertyConfig{
				Type:   notionapi.PropertyConfigTypeSelect,
				Select: notionapi.Select{Options: options},
			},
			"Named Entities": notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
			"Summary":        notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
		},
	}

	db, err := nc.client.Database.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create Notion database: %w", err)
	}
	nc.dbID = notionapi.DatabaseID(db.ID)
	infof("notion: database created: https://notion.so/%s", db.ID)
	return nil
}

// ClipArticle は1件の記事をページとして保存する
func (nc *NotionClipper) ClipArticle(ctx context.Context, r ArticleRecord) error {
	if nc.dbID == "" {
		return errNotionDatabaseUnset
	}
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: nc.dbID,
		},
		Properties: articleProperties(r),
	}
	if _, err := nc.client.Page.Create(ctx, req); err != nil {
		return fmt.Errorf("failed to clip %s: %w", r.URL, err)
	}
	return nil
}

// ClipAll は全件を保存する。個々の失敗はログに出して続行し、失敗件数を返す
func (nc *NotionClipper) ClipAll(ctx context.Context, records []ArticleRecord) int {
	failed := 0
	for _, r := range records {
		if err := nc.ClipArticle(ctx, r); err != nil {
			errorf("notion: %v", err)
			failed++
		}
	}
	infof("notion: clipped %d/%d articles", len(records)-failed, len(records))
	return failed
}

// articleProperties はArticleRecordをNotionのプロパティに変換する
func articleProperties(r ArticleRecord) notionapi.Properties {
	props := notionapi.Properties{
		"Title": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(r.Title),
		},
		"URL": notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  r.URL,
		},
		"Event Date": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(r.EventDate),
		},
		"Leader Mentioned": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(r.LeadersMentioned),
		},
		"Category": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: r.Category},
		},
		"Named Entities": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(strings.Join(r.NamedEntities, ", ")),
		},
		"Summary": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(r.Summary),
		},
	}

	// "Unknown" は日付プロパティにしない
	if t, err := time.Parse(DateLayout, r.PublishedDate); err == nil {
		d := notionapi.Date(t)
		props["Published Date"] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &d},
		}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: truncateString(s, notionTextLimit)}}}
}
