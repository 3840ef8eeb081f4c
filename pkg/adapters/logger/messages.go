package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Indexing %s":                                     "%s のインデックスを作成中",
		"Loaded cached index for %s":                      "%s のキャッシュ済みインデックスを読み込みました",
		"Index ready: %d samples, %d keyframes, %dx%d %s": "インデックス準備完了: %d サンプル, %d キーフレーム, %dx%d %s",
		"Planning %d frames":                              "%d フレームの取得を計画中",
		"Plan: %d intervals, %d bytes to read":            "計画: %d 区間, 読み込み %d バイト",
		"Decoding with %s backend":                        "%s バックエンドでデコード中",
		"Retrieved %d frames":                             "%d フレームを取得しました",
		"Interrupted, shutting down...":                   "中断されました。シャットダウン中...",

		// Orchestration errors
		"Failed to index %s: %s":      "%s のインデックス作成に失敗しました: %s",
		"Failed to plan frames: %s":   "フレームの計画に失敗しました: %s",
		"Failed to select decoder: %s": "デコーダーの選択に失敗しました: %s",
		"Failed to decode frames: %s": "フレームのデコードに失敗しました: %s",

		// Indexer component
		"Reading %d bytes at offset %d":                          "オフセット %[2]d から %[1]d バイトを読み込み中",
		"Indexed %d samples (%d keyframes) in %d reads, %d bytes": "%d サンプル (%d キーフレーム) を %d 回, %d バイトの読み込みでインデックス化しました",
		"Cache hit for %s":                                       "%s のキャッシュがヒットしました",
		"Ignoring cached index: %s":                              "キャッシュ済みインデックスを無視します: %s",
		"Failed to save index cache: %s":                         "インデックスキャッシュの保存に失敗しました: %s",

		// Slicing and decode components
		"Interval %d: samples %d-%d, %d bytes, keep %d": "区間 %d: サンプル %d-%d, %d バイト, 出力 %d",
		"Decoded samples %d-%d from %d bytes, kept %d": "サンプル %d-%d を %d バイトからデコード, 出力 %d",
		"Decoding %d intervals with %d workers":         "%d 区間を %d ワーカーでデコード中",
		"Selected %s decoder for %s":                    "%[2]s 用に %[1]s デコーダーを選択しました",
	})
}
