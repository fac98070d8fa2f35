package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
)

// imageCmd は、保存済みの計画JSONから画像生成以降だけを実行するのだ。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "解析済みの計画JSONから画像を生成しますなのだ。",
	Long: `analyze サブコマンドで保存した計画JSON（--script-file）を読み込み、
キャラクター資産とシーン画像の生成、成果物の保存までを実行するのだ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if opts.ScriptFile == "" {
			return fmt.Errorf("計画JSON（--script-file）を指定してほしいのだ")
		}
		return pipeline.ExecuteImageOnly(cmd.Context(), loadRuntimeConfig())
	},
}
