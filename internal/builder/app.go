package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/remoteio"
	"github.com/shouni/go-remote-io/remoteio/gcs"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する。
// これを各 Execute 関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config  *config.Config         // 環境変数から読み込まれたグローバルな設定なのだ
	Options config.GenerateOptions // コマンドラインから渡された実行時の設定なのだ
	Reader  remoteio.InputReader   // 外部データや台本の読み込みに使用する入力元なのだ
	Writer  remoteio.OutputWriter  // 生成された内容を保存するための出力先なのだ
	Manager *workflow.Manager      // 解析から書き出しまでを束ねるワークフローなのだ
}

// NewAppContext は、設定から共有コンポーネントを組み立てて AppContext を返すのだ。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	httpTimeout := cfg.Options.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(httpTimeout)

	gcsFactory, err := gcs.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("ストレージクライアントの初期化に失敗しました: %w", err)
	}
	reader, err := gcsFactory.InputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.OutputWriter()
	if err != nil {
		return nil, err
	}

	wfConfig := workflow.NewConfig(cfg.GeminiAPIKey)
	wfConfig.TextModel = cfg.GeminiModel
	wfConfig.ImageModel = cfg.GeminiImageModel
	wfConfig.StyleTemplate = cfg.StyleTemplate
	if cfg.Options.ImageSize != "" {
		size := gemini.ImageSize(cfg.Options.ImageSize)
		if !gemini.ValidImageSize(size) {
			return nil, fmt.Errorf("不正な解像度指定です: %q（1K / 2K / 4K のいずれかなのだ）", cfg.Options.ImageSize)
		}
		wfConfig.Size = size
	}
	if cfg.Options.AspectRatio != "" {
		wfConfig.AspectRatio = cfg.Options.AspectRatio
	}
	if cfg.Options.RateLimit > 0 {
		wfConfig.RequestsPerMinute = cfg.Options.RateLimit
	}

	manager, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:     wfConfig,
		HTTPClient: httpClient,
		Reader:     reader,
		Writer:     writer,
	})
	if err != nil {
		return nil, err
	}

	return &AppContext{
		Config:  cfg,
		Options: cfg.Options,
		Reader:  reader,
		Writer:  writer,
		Manager: manager,
	}, nil
}
