// Package main provides localization for the framefetch CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Decoding":      "デコード",
		"Indexing":      "インデックス",
		"Sources":       "入力ソース",
		"Debug":         "デバッグ",
		"Logging":       "ログ",

		// Root command
		"Fetch individual frames from MP4 files without decoding the whole stream": "ストリーム全体をデコードせずにMP4ファイルから個別のフレームを取得",

		// Commands
		"Build the sample index of a video":              "動画のサンプルインデックスを作成",
		"Show a serialized index":                        "保存済みインデックスを表示",
		"Print the decode intervals for a set of frames": "指定フレームのデコード区間を表示",
		"Decode frames and write them as images":         "フレームをデコードして画像として保存",

		// Command flags
		"Write the serialized index to this file": "インデックスをこのファイルに保存",
		"Ignore the index cache":                  "インデックスキャッシュを使用しない",
		"Frames to fetch, e.g. 7,2,9 or 10-20":    "取得するフレーム（例: 7,2,9 や 10-20）",
		"Output directory for images":             "画像の出力ディレクトリ",
		"Image format (png, bmp)":                 "画像形式（png, bmp）",
		"Write a Markdown summary to this file":   "Markdownのサマリーをこのファイルに保存",

		// Global flags
		"YAML configuration file":                       "YAML設定ファイル",
		"Decoder backend (auto, software, accelerated)": "デコーダーバックエンド（auto, software, accelerated）",
		"Path to ffmpeg executable":                     "ffmpeg実行ファイルのパス",
		"Number of intervals decoded in parallel":       "並列にデコードする区間の数",
		"Largest single read in bytes (0 = unlimited)":  "1回の読み込みの最大バイト数（0 = 無制限）",
		"Directory for cached indexes":                  "インデックスキャッシュのディレクトリ",
		"Do not read or write cached indexes on disk":   "ディスク上のインデックスキャッシュを読み書きしない",
		"AWS region for s3:// sources":                  "s3:// ソースのAWSリージョン",
		"Enable debug output":                           "デバッグ出力を有効化",
		"Directory for debug output":                    "デバッグ出力のディレクトリ",
		"Log level (debug, info, warn, error)":          "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                       "全てのログ出力を抑制",

		"Merge intervals whose keyframes are at most this many samples apart": "キーフレームの間隔がこのサンプル数以下の区間を結合",

		// Runtime messages
		"Index saved to %s":                     "インデックスを %s に保存しました",
		"Summary saved to %s":                   "サマリーを %s に保存しました",
		"Wrote %d frames to %s (%d bytes read)": "%d フレームを %s に書き出しました（読み込み %d バイト）",
		"Interrupted, shutting down...":         "中断されました。シャットダウン中...",
		"Error: %s":                             "エラー: %s",

		// Index summary
		"Samples":        "サンプル数",
		"Keyframes":      "キーフレーム数",
		"Frame size":     "フレームサイズ",
		"Format":         "形式",
		"Codec metadata": "コーデック情報",
		"Media span":     "メディア範囲",

		// Retrieval summary
		"Retrieval Summary": "取得サマリー",
		"Generated":         "生成日時",
		"Source":            "入力ソース",
		"Name":              "名前",
		"Size":              "サイズ",
		"Cached Index":      "キャッシュ済みインデックス",
		"Track":             "トラック",
		"Frame Size":        "フレームサイズ",
		"Codec":             "コーデック",
		"Plan":              "デコード計画",
		"Requested Frames":  "要求フレーム数",
		"Intervals":         "区間数",
		"Decoded Samples":   "デコードサンプル数",
		"Bytes to Read":     "読み込み予定バイト数",
		"Share of File":     "ファイルに占める割合",
		"Backend":           "バックエンド",
		"Workers":           "ワーカー数",
		"Bytes Read":        "読み込みバイト数",
		"Image Format":      "画像形式",
		"Output":            "出力先",
		"Generated by":      "生成元",
		"Item":              "項目",
		"Value":             "値",
		"Yes":               "はい",
		"No":                "いいえ",

		// Error messages
		"exactly one video argument is required":      "動画の引数を1つだけ指定してください",
		"exactly one index file argument is required": "インデックスファイルの引数を1つだけ指定してください",
	})
}
