// =============================================================================
// classify.go - 記事の分類とエンティティ抽出
// =============================================================================
//
// 記事本文に対して以下を行います。
//
//   - Categorize:       キーワードによるカテゴリ分類（宣言順で最初にマッチしたもの）
//   - ExtractEntities:  人名・組織名・地名の抽出（PERSON / ORG / GPE）
//   - ExtractEventDate: 本文中の最初の日付表現（過去優先）
//   - KeywordRelevance: キーワードまたはリーダー名を含むか
//   - LeadersMentioned: 本文に登場するリーダー名
//
// 【マッチング】すべて大文字小文字を区別しない部分文字列一致
// （単語境界は見ないため "announced" は "unannounced" にもマッチする）
//
// =============================================================================
package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/jdkato/prose/v2"
	"gopkg.in/yaml.v3"
)

// Category はカテゴリ名とそのキーワード
type Category struct {
	Label    string   `yaml:"label" json:"label"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultCategory はどのキーワードにもマッチしなかった場合のカテゴリ
const DefaultCategory = "Brief Mentions"

// DefaultCategories は組み込みのカテゴリ定義（この順で評価する）
var DefaultCategories = []Category{
	{Label: "Press Release", Keywords: []string{"press release", "announced", "unveiled", "launched"}},
	{Label: "Jury", Keywords: []string{"jury", "judge", "jury member", "jury panel", "jury appointment"}},
	{Label: "Interviews", Keywords: []string{"interview with", "exclusive interview", "spoke to", "conversation with"}},
	{Label: "Speaking Opportunity", Keywords: []string{"keynote", "fireside chat", "panel discussion", "session speaker", "speaker at"}},
	{Label: "Article Commentary", Keywords: []string{"quoted", "commented", "shared", "according to", "said", "opinion"}},
	{Label: "Brief Mentions", Keywords: []string{"congratulations", "appointed", "wins", "promotion", "award", "linkedin update"}},
}

// LoadCategories はYAMLファイルから順序付きのカテゴリ定義を読み込む
//
// ファイル形式:
//
//   - label: Press Release
//     keywords: [press release, announced]
func LoadCategories(path string) ([]Category, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category file: %w", err)
	}
	var cats []Category
	if err := yaml.Unmarshal(b, &cats); err != nil {
		return nil, fmt.Errorf("parse category file %s: %w", path, err)
	}
	for i, c := range cats {
		if strings.TrimSpace(c.Label) == "" {
			return nil, fmt.Errorf("%w: category #%d has no label", errInvalidConfig, i+1)
		}
	}
	return cats, nil
}

// =============================================================================
// エンティティ認識
// =============================================================================

// Entity は認識されたエンティティ
type Entity struct {
	Text  string
	Label string
}

// EntityRecognizer はテキストから (text, label) の列を返す外部ユーティリティの抽象
type EntityRecognizer interface {
	Recognize(text string) ([]Entity, error)
}

// entityLabels は出力に残すラベル
var entityLabels = map[string]bool{"PERSON": true, "ORG": true, "GPE": true}

// ProseRecognizer はproseの学習済みモデルでエンティティを認識する
type ProseRecognizer struct{}

func (ProseRecognizer) Recognize(text string) ([]Entity, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}
	ents := doc.Entities()
	out := make([]Entity, 0, len(ents))
	for _, e := range ents {
		out = append(out, Entity{Text: e.Text, Label: e.Label})
	}
	return out, nil
}

// =============================================================================
// Classifier
// =============================================================================

// Classifier は本文の分類を行う
type Classifier struct {
	Categories []Category
	Recognizer EntityRecognizer
	Miner      DateMiner
}

// NewClassifier はデフォルトのカテゴリ・proseのNER・正規表現の日付抽出で生成する
func NewClassifier(categories []Category) *Classifier {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	return &Classifier{
		Categories: categories,
		Recognizer: ProseRecognizer{},
		Miner:      NewRegexDateMiner(),
	}
}

// Categorize は宣言順で最初にキーワードがマッチしたカテゴリを返す
func (c *Classifier) Categorize(text string) string {
	lower := strings.ToLower(text)
	for _, cat := range c.Categories {
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return cat.Label
			}
		}
	}
	return DefaultCategory
}

// ExtractEntities は PERSON / ORG / GPE のエンティティを検出順に返す（重複も残す）
func (c *Classifier) ExtractEntities(text string) []string {
	if c.Recognizer == nil || strings.TrimSpace(text) == "" {
		return []string{}
	}
	ents, err := c.Recognizer.Recognize(text)
	if err != nil {
		warnf("entities: recognizer failed: %v", err)
		return []string{}
	}
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if entityLabels[e.Label] {
			out = append(out, e.Text)
		}
	}
	return out
}

// ExtractEventDate は本文中の最初の日付を YYYY-MM-DD で返す（なければ "Not Mentioned"）
func (c *Classifier) ExtractEventDate(text string) string {
	if c.Miner == nil || strings.TrimSpace(text) == "" {
		return NotMentioned
	}
	ms := c.Miner.SearchDates(text, true)
	if len(ms) == 0 {
		return NotMentioned
	}
	return ms[0].Date.Format(DateLayout)
}

// KeywordRelevance は本文がいずれかのキーワードを含むかを返す
func (c *Classifier) KeywordRelevance(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// LeadersMentioned は本文に登場するリーダー名をカンマ区切りで返す
func (c *Classifier) LeadersMentioned(text string, leaders []string) string {
	lower := strings.ToLower(text)
	var found []string
	for _, l := range leaders {
		if l != "" && strings.Contains(lower, strings.ToLower(l)) {
			found = append(found, l)
		}
	}
	if len(found) == 0 {
		return NotMentioned
	}
	return strings.Join(found, ", ")
}
