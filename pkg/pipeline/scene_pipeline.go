// Package pipeline は、絵コンテの全シーンに開始・終了の2フレームを充填する
// 中核のステートマシンです。シーンは計画順に逐次処理され、第一パスの後に
// 未完成シーンだけを対象とする修復パスを1回だけ実行します。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/retry"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

const (
	// firstPassAttempts は第一パスにおける1画像あたりの総試行回数です。
	firstPassAttempts = 3
	// repairAttempts は修復パスにおける1画像あたりの総試行回数です。
	repairAttempts = 2

	// defaultRequestsPerMinute はバックエンドへの生成リクエストのペーシングです。
	defaultRequestsPerMinute = 12
)

// ImageGenerator は画像生成エンジンへのインターフェースです。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (*domain.ImageRef, error)
}

// Options はパイプラインの実行設定です。
type Options struct {
	StyleTemplate string
	Size          gemini.ImageSize
	AspectRatio   string
	// RequestsPerMinute はゼロ値ならデフォルトのペーシングを使用します。
	RequestsPerMinute int
}

// ScenePipeline は Progress/State Store を唯一の真実として全シーンを充填します。
// 自身はシーンリストのコピーを保持せず、処理のたびにストアのスナップショットを読むのだ。
type ScenePipeline struct {
	generator ImageGenerator
	store     *store.Store
	opts      Options
	limiter   *rate.Limiter

	// retryInterval はバックオフの基準間隔です。テストから短縮できます。
	retryInterval time.Duration
}

// NewScenePipeline は依存関係を注入してパイプラインを生成します。
func NewScenePipeline(generator ImageGenerator, st *store.Store, opts Options) *ScenePipeline {
	if opts.StyleTemplate == "" {
		opts.StyleTemplate = prompts.DefaultStyleTemplate
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	return &ScenePipeline{
		generator:     generator,
		store:         st,
		opts:          opts,
		limiter:       rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		retryInterval: retry.DefaultInterval,
	}
}

// policy は指定した総試行回数の指数バックオフ方針を組み立てます。
func (p *ScenePipeline) policy(maxAttempts int) retry.Policy {
	pol := retry.Exponential(maxAttempts)
	pol.Interval = p.retryInterval
	return pol
}

// Run は第一パスと修復パスを順に実行します。
// 個々のシーンの失敗は失敗フラグとして記録するだけで処理を止めません。
// 唯一の早期終了は認可エラーで、その場合はストアのエラー状態に記録した上で返ります。
func (p *ScenePipeline) Run(ctx context.Context, canonical *domain.ImageRef) error {
	snap := p.store.Snapshot()
	if snap == nil {
		return fmt.Errorf("セッションが開始されていません")
	}

	slog.InfoContext(ctx, "シーン画像の第一パスを開始します", "scene_count", len(snap.Scenes))
	if err := p.firstPass(ctx, snap, canonical); err != nil {
		return err
	}

	// 修復パスは計画ではなく「現在の」状態を読み直す。
	// 第一パスで空応答に終わったシーンもここで拾われるのだ。
	current := p.store.Snapshot()
	missing := current.IncompleteSceneIDs()
	if len(missing) == 0 {
		slog.InfoContext(ctx, "全シーンが第一パスで完成しました")
		return nil
	}

	slog.InfoContext(ctx, "未完成シーンの修復パスを開始します", "scene_ids", missing)
	if err := p.repairPass(ctx, current, canonical); err != nil {
		return err
	}

	remaining := p.store.Snapshot().IncompleteSceneIDs()
	if len(remaining) > 0 {
		slog.WarnContext(ctx, "修復パス後も未完成のシーンが残っています", "scene_ids", remaining)
	}
	return nil
}

// firstPass は計画順に各シーンの A→B を生成します。
// 1シーン内では画像Aの決着（成功または試行尽き）が画像Bの開始より必ず先行します。
func (p *ScenePipeline) firstPass(ctx context.Context, data *domain.StoryboardData, canonical *domain.ImageRef) error {
	for _, scene := range data.Scenes {
		if err := p.store.PatchScene(scene.ID, store.ScenePatch{
			Generating: domain.Ptr(true),
			RetryPhase: domain.Ptr(domain.PhaseFirstPassA),
		}); err != nil {
			return err
		}

		errA := p.generateFrame(ctx, data.ConsistencyBible, scene, prompts.FrameA, canonical, p.policy(firstPassAttempts))
		if abortErr := p.checkAbort(ctx, scene.ID, errA); abortErr != nil {
			return abortErr
		}

		if err := p.store.PatchScene(scene.ID, store.ScenePatch{
			RetryPhase: domain.Ptr(domain.PhaseFirstPassB),
		}); err != nil {
			return err
		}

		errB := p.generateFrame(ctx, data.ConsistencyBible, scene, prompts.FrameB, canonical, p.policy(firstPassAttempts))
		if abortErr := p.checkAbort(ctx, scene.ID, errB); abortErr != nil {
			return abortErr
		}

		if errA != nil && errB != nil {
			slog.WarnContext(ctx, "シーンの両フレームが第一パスで失敗しました", "scene_id", scene.ID)
		}

		if err := p.store.PatchScene(scene.ID, store.ScenePatch{
			Generating: domain.Ptr(false),
			RetryPhase: domain.Ptr(domain.PhaseIdle),
		}); err != nil {
			return err
		}
	}
	return nil
}

// repairPass は未完成のシーンだけを、新しいリトライ予算で1回だけ再試行します。
// これ以上の再帰はしません。残った欠落はフラグとして残る終端的な失敗なのだ。
func (p *ScenePipeline) repairPass(ctx context.Context, data *domain.StoryboardData, canonical *domain.ImageRef) error {
	for _, scene := range data.Scenes {
		if scene.Complete() {
			continue
		}

		if err := p.store.PatchScene(scene.ID, store.ScenePatch{
			Generating: domain.Ptr(true),
		}); err != nil {
			return err
		}

		if scene.ImageA == nil {
			if err := p.store.PatchScene(scene.ID, store.ScenePatch{
				RetryPhase: domain.Ptr(domain.PhaseRepairA),
			}); err != nil {
				return err
			}
			errA := p.generateFrame(ctx, data.ConsistencyBible, scene, prompts.FrameA, canonical, p.policy(repairAttempts))
			if abortErr := p.checkAbort(ctx, scene.ID, errA); abortErr != nil {
				return abortErr
			}
		}

		if scene.ImageB == nil {
			if err := p.store.PatchScene(scene.ID, store.ScenePatch{
				RetryPhase: domain.Ptr(domain.PhaseRepairB),
			}); err != nil {
				return err
			}
			errB := p.generateFrame(ctx, data.ConsistencyBible, scene, prompts.FrameB, canonical, p.policy(repairAttempts))
			if abortErr := p.checkAbort(ctx, scene.ID, errB); abortErr != nil {
				return abortErr
			}
		}

		if err := p.store.PatchScene(scene.ID, store.ScenePatch{
			Generating: domain.Ptr(false),
			RetryPhase: domain.Ptr(domain.PhaseIdle),
		}); err != nil {
			return err
		}
	}
	return nil
}

// generateFrame は1フレーム分の生成をリトライ付きで実行し、結果をストアへ反映します。
// 試行が尽きた場合は失敗フラグを立てて nil 以外を返しますが、呼び出し側で
// 認可エラーだけが伝播対象になります。
func (p *ScenePipeline) generateFrame(
	ctx context.Context,
	bible domain.ConsistencyBible,
	scene domain.Scene,
	frame prompts.Frame,
	canonical *domain.ImageRef,
	policy retry.Policy,
) error {
	description := prompts.BuildFrameDescription(scene, frame)
	prompt := prompts.BuildImagePrompt(p.opts.StyleTemplate, bible, description, canonical != nil)

	img, err := retry.Do(ctx, policy.WithFatal(gemini.IsAuthorization), func(ctx context.Context) (*domain.ImageRef, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.generator.GenerateImage(ctx, gemini.ImageRequest{
			Prompt:      prompt,
			Reference:   canonical,
			Size:        p.opts.Size,
			AspectRatio: p.opts.AspectRatio,
		})
	})
	if err != nil {
		// コンテキストの中断は画像固有の失敗ではないので、フラグは立てずに伝播させる。
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !gemini.IsAuthorization(err) {
			slog.WarnContext(ctx, "フレーム生成が試行上限に達しました",
				"scene_id", scene.ID, "frame", string(frame), "error", err)
			patch := store.ScenePatch{ImageAFailed: domain.Ptr(true)}
			if frame == prompts.FrameB {
				patch = store.ScenePatch{ImageBFailed: domain.Ptr(true)}
			}
			if patchErr := p.store.PatchScene(scene.ID, patch); patchErr != nil {
				return patchErr
			}
		}
		return err
	}

	patch := store.ScenePatch{ImageA: img}
	if frame == prompts.FrameB {
		patch = store.ScenePatch{ImageB: img}
	}
	return p.store.PatchScene(scene.ID, patch)
}

// checkAbort は認可エラーとコンテキスト中断による全体停止を処理します。
// どちらの場合も処理中シーンの生成中フラグを解除してから返ります。
// ストアのエラー状態に記録するのは認可エラーだけです。並行する工程から
// 伝播してきたキャンセルは、元の失敗がすでに記録済みのはずなのだ。
func (p *ScenePipeline) checkAbort(ctx context.Context, sceneID int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if patchErr := p.store.PatchScene(sceneID, store.ScenePatch{
			Generating: domain.Ptr(false),
			RetryPhase: domain.Ptr(domain.PhaseIdle),
		}); patchErr != nil {
			slog.WarnContext(ctx, "中断時の状態更新に失敗しました", "scene_id", sceneID, "error", patchErr)
		}
		return err
	}
	if !gemini.IsAuthorization(err) {
		return nil
	}
	slog.ErrorContext(ctx, "認可エラーのためパイプライン全体を中断します", "scene_id", sceneID, "error", err)
	if patchErr := p.store.PatchScene(sceneID, store.ScenePatch{
		Generating: domain.Ptr(false),
		RetryPhase: domain.Ptr(domain.PhaseIdle),
	}); patchErr != nil {
		slog.WarnContext(ctx, "中断時の状態更新に失敗しました", "scene_id", sceneID, "error", patchErr)
	}
	p.store.SetError(err)
	return fmt.Errorf("画像生成が認可エラーで中断しました: %w", err)
}
