package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
)

// analyzeCmd は台本解析だけを行い、計画JSONを保存するのだ。
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "台本を解析してシーン計画JSONを出力しますなのだ。",
	Long: `画像生成は行わず、台本のシーン分解と一貫性バイブルの抽出だけを実行するのだ。
出力された計画JSONは image サブコマンドでそのまま使えるのだよ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSource(); err != nil {
			return err
		}
		return pipeline.ExecuteAnalyzeOnly(cmd.Context(), loadRuntimeConfig())
	},
}
