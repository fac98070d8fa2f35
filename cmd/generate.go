package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
)

// generateCmd は、台本解析から絵コンテ画像生成までを一気通貫で実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "台本から絵コンテ一式を生成しますなのだ。",
	Long: `台本を解析してシーン分解し、正準キャラクター画像・三面図・
各シーンの開始/終了フレームを生成して、ドキュメントと画像を保存するのだ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	if err := requireSource(); err != nil {
		return err
	}

	cfg := loadRuntimeConfig()

	slog.Info("絵コンテ生成パイプラインを起動するのだ！",
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"size", opts.ImageSize,
		"output", opts.OutputDir)

	if err := pipeline.ExecuteGenerate(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}
