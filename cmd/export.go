package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
)

// exportCmd は、保存済みのセッションから成果物だけを再構築するのだ。
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "保存済みのメタデータと画像から成果物を再構築しますなのだ。",
	Long: `出力ディレクトリに保存された storyboard.json と画像ファイルを読み込み、
Markdown ドキュメント（--archive 指定時は zip アーカイブも）を再生成するのだ。
アーカイブは全シーンの画像が揃っていないと拒否されるのだよ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteExportOnly(cmd.Context(), loadRuntimeConfig())
	},
}
