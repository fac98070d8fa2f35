package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
)

// characterCmd は、キャラクターの正準画像と三面図だけを生成するのだ。
var characterCmd = &cobra.Command{
	Use:   "character",
	Short: "正準キャラクター画像と三面図だけを生成しますなのだ。",
	Long: `台本を解析して一貫性バイブルを抽出し、そこからキャラクターの
正準画像と正面・側面・背面の三面図を生成して保存するのだ。
シーン画像の生成は行わないのだよ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSource(); err != nil {
			return err
		}
		return pipeline.ExecuteCharacterOnly(cmd.Context(), loadRuntimeConfig())
	},
}
