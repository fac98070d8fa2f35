// Package workflow は、台本解析から画像生成・書き出しまでの全工程を
// 1つのファサードに束ねます。ライブラリとして組み込む場合の入口です。
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/remoteio"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/runner"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// ManagerArgs は Manager の初期化引数です。
type ManagerArgs struct {
	Config     Config
	HTTPClient httpkit.HTTPClient
	Reader     remoteio.InputReader
	Writer     remoteio.OutputWriter
}

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
type Manager struct {
	cfg          Config
	store        *store.Store
	client       *gemini.Client
	generator    pipeline.ImageGenerator
	scriptRunner *runner.ScriptRunner
	designRunner *runner.DesignRunner
	publisher    *publisher.StoryboardPublisher
	reader       remoteio.InputReader
}

// New は、設定と入出力を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.Config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GeminiAPIKey は必須です")
	}
	if args.HTTPClient == nil {
		return nil, fmt.Errorf("HTTPClient は必須です")
	}
	if args.Reader == nil {
		return nil, fmt.Errorf("Reader は必須です")
	}
	if args.Writer == nil {
		return nil, fmt.Errorf("Writer は必須です")
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:     args.Config.GeminiAPIKey,
		TextModel:  args.Config.TextModel,
		ImageModel: args.Config.ImageModel,
	})
	if err != nil {
		return nil, fmt.Errorf("バックエンドクライアントの初期化に失敗しました: %w", err)
	}

	instruction, err := prompts.AnalysisSystemInstruction()
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:          args.Config,
		store:        store.New(),
		client:       client,
		generator:    client,
		scriptRunner: runner.NewScriptRunner(client, args.Reader, args.HTTPClient, instruction),
		designRunner: runner.NewDesignRunner(client, args.Config.StyleTemplate, args.Config.Size),
		publisher:    publisher.NewStoryboardPublisher(args.Writer),
		reader:       args.Reader,
	}, nil
}

// Store はライブ進捗を読み出すためのストアを返します。
func (m *Manager) Store() *store.Store {
	return m.store
}

// Analyze は台本を解析し、新しいセッションとしてストアを初期化します。
func (m *Manager) Analyze(ctx context.Context, source string) (domain.StoryboardPlan, error) {
	plan, err := m.scriptRunner.Run(ctx, source)
	if err != nil {
		return domain.StoryboardPlan{}, err
	}
	m.store.Reset(plan)
	return plan, nil
}

// Generate は解析から画像生成までを一気通貫で実行し、最終状態を返します。
// 三面図の生成とシーン画像の生成は、正準画像の確立後に並行して走るのだ。
func (m *Manager) Generate(ctx context.Context, source string) (*domain.StoryboardData, error) {
	if _, err := m.Analyze(ctx, source); err != nil {
		return nil, err
	}
	return m.generateAssets(ctx)
}

// GenerateFromPlan は、解析済みの計画からセッションを開始して画像生成を実行します。
// 解析フェーズを飛ばして再生成したいときに使うのだ。
func (m *Manager) GenerateFromPlan(ctx context.Context, plan domain.StoryboardPlan) (*domain.StoryboardData, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("計画が不正です: %w", err)
	}
	m.store.Reset(plan)
	return m.generateAssets(ctx)
}

// CreateCharacterAssets は正準キャラクター画像と三面図だけを生成してストアに記録します。
func (m *Manager) CreateCharacterAssets(ctx context.Context, bible domain.ConsistencyBible) (*domain.ImageRef, domain.CharacterReferenceSheet, error) {
	canonical, err := m.designRunner.CreateCharacter(ctx, bible)
	if err != nil {
		return nil, domain.CharacterReferenceSheet{}, err
	}
	m.store.SetCanonicalCharacter(canonical)

	sheet, err := m.designRunner.CreateReferenceSheet(ctx, bible.CharacterVisuals, canonical)
	if err != nil {
		return canonical, sheet, err
	}
	if sheet.Populated() {
		m.store.AttachReferenceSheet(sheet)
	}
	return canonical, sheet, nil
}

func (m *Manager) generateAssets(ctx context.Context) (*domain.StoryboardData, error) {
	snap := m.store.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("セッションが開始されていません")
	}

	canonical, err := m.designRunner.CreateCharacter(ctx, snap.ConsistencyBible)
	if err != nil {
		if gemini.IsAuthorization(err) {
			m.store.SetError(err)
			return nil, err
		}
		// 正準画像なしでも続行できる。一貫性は下がるが生成は可能なのだ。
		slog.WarnContext(ctx, "正準キャラクター画像の生成に失敗しました。参照なしで続行します", "error", err)
		canonical = nil
	}
	if canonical != nil {
		m.store.SetCanonicalCharacter(canonical)
	}

	if err := m.GenerateImages(ctx, canonical); err != nil {
		return nil, err
	}
	return m.store.Snapshot(), nil
}

// GenerateImages は、三面図とシーン画像を並行して生成します。
// セッション（ストア）は解析済みであることが前提です。
func (m *Manager) GenerateImages(ctx context.Context, canonical *domain.ImageRef) error {
	snap := m.store.Snapshot()
	if snap == nil {
		return fmt.Errorf("セッションが開始されていません。先に Analyze を実行してください")
	}

	scenePipeline := pipeline.NewScenePipeline(m.generator, m.store, pipeline.Options{
		StyleTemplate:     m.cfg.StyleTemplate,
		Size:              m.cfg.Size,
		AspectRatio:       m.cfg.AspectRatio,
		RequestsPerMinute: m.cfg.RequestsPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)

	if canonical != nil {
		g.Go(func() error {
			sheet, err := m.designRunner.CreateReferenceSheet(gctx, snap.ConsistencyBible.CharacterVisuals, canonical)
			if err != nil {
				// 三面図側で起きた認可エラーもセッション全体の失敗なので、ストアに記録する。
				if gemini.IsAuthorization(err) {
					m.store.SetError(err)
				}
				return err
			}
			if sheet.Populated() {
				m.store.AttachReferenceSheet(sheet)
			}
			return nil
		})
	}

	g.Go(func() error {
		return scenePipeline.Run(gctx, canonical)
	})

	return g.Wait()
}

// Export は現在のセッション状態を成果物として書き出します。
func (m *Manager) Export(ctx context.Context, opts publisher.Options) (publisher.PublishResult, error) {
	return runner.NewPublishRunner(m.publisher, m.store).Run(ctx, opts)
}

// ExportSaved は、保存済みのメタデータJSONと画像から成果物を再構築して書き出します。
func (m *Manager) ExportSaved(ctx context.Context, data *domain.StoryboardData, opts publisher.Options) (publisher.PublishResult, error) {
	if err := publisher.ReattachImages(ctx, m.reader, data, opts.OutputDir); err != nil {
		return publisher.PublishResult{}, err
	}
	return m.publisher.Publish(ctx, data, opts)
}
