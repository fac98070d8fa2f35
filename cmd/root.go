package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/internal/config"
)

// opts は全サブコマンドで共有される実行時パラメータなのだ。
var opts config.GenerateOptions

var rootCmd = &cobra.Command{
	Use:   "storyboard-kit",
	Short: "台本からアニメーション用の絵コンテを生成するツールなのだ。",
	Long: `テキスト台本を解析してシーン分解し、キャラクターの視覚的一貫性を保ったまま
各シーンの開始・終了フレーム画像とモーションプロンプトを生成するのだ。`,
	PersistentPreRunE: preRunAppE,
	SilenceUsage:      true,
}

func init() {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ScriptURL, "script-url", "u", "", "台本を取得するWebページのURLなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.ScriptFile, "script-file", "f", "", "台本ファイルのパス（ローカル or gs://...）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物の保存先ディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.WithArchive, "archive", false, "全シーン完成時にzipアーカイブも書き出すのだ。")

	// --- 画像生成設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.ImageSize, "size", config.DefaultImageSize, "生成画像の解像度（1K / 2K / 4K）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.AspectRatio, "aspect-ratio", config.DefaultAspectRatio, "シーン画像のアスペクト比なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "台本解析に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "画像生成に使う Gemini モデル名なのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().IntVar(&opts.RateLimit, "rate-limit", config.DefaultRateLimit, "1分あたりの画像生成リクエスト数なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")

	rootCmd.AddCommand(generateCmd, analyzeCmd, imageCmd, characterCmd, exportCmd)
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// loadRuntimeConfig は環境変数とフラグをマージした実行設定を返すのだ。
func loadRuntimeConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.GeminiModel = opts.AIModel
	cfg.GeminiImageModel = opts.ImageModel
	cfg.Options = opts
	return cfg
}

// requireSource は台本ソースの指定を検証するのだ。
func requireSource() error {
	if opts.ScriptURL == "" && opts.ScriptFile == "" {
		return fmt.Errorf("ソース（--script-url または --script-file）を指定してほしいのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
