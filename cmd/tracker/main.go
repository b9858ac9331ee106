// =============================================================================
// main.go - Media Tracker CLIのエントリーポイント
// =============================================================================
//
// キーワード（とリーダー名）でニュース検索を行い、期間内の記事を
// 分類して2つのテーブル（関連記事 / アクセス不可）として出力します。
//
// 【コマンド】
//
//	tracker run --keywords "OMG India,Omnicom Media Group" \
//	            --leaders "Jane Doe" --start 2024-01-01 --end 2024-12-31 \
//	            [--xlsx report.xlsx] [--out result.json] [--notion] [--email]
//
//	tracker categories   有効なカテゴリ定義（評価順）を表示
//
// 【設定の優先順位】
//
//	フラグ > 環境変数（TRACKER_ プレフィックス） > config.yaml > デフォルト値
//	.env ファイルがあれば起動時に読み込む
//
// 【出力】
//
//	stdout: 結果（表、または --out 省略時以外はファイル）
//	stderr: ログ
//
// =============================================================================
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
