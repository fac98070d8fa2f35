package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/retry"
)

const (
	// canonicalAspectRatio は正準キャラクター画像の固定アスペクト比です。
	canonicalAspectRatio = "1:1"
	// viewAttempts は三面図の1視点あたりの総試行回数です。
	viewAttempts = 3
)

// ImageGenerator は画像生成エンジンへのインターフェースです。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (*domain.ImageRef, error)
}

// DesignRunner はキャラクターの視覚的アイデンティティを確立する実行実体なのだ。
// 2段階: まずバイブルの記述だけから正準画像を1枚作り、
// 次にその画像を参照として正面・側面・背面の三面図を派生させます。
type DesignRunner struct {
	generator     ImageGenerator
	styleTemplate string
	size          gemini.ImageSize

	// viewRetryInterval は三面図リトライの線形バックオフ基準です。テストから短縮できます。
	viewRetryInterval time.Duration
}

// NewDesignRunner は依存関係を注入して初期化します。
func NewDesignRunner(generator ImageGenerator, styleTemplate string, size gemini.ImageSize) *DesignRunner {
	if styleTemplate == "" {
		styleTemplate = prompts.DefaultStyleTemplate
	}
	return &DesignRunner{
		generator:         generator,
		styleTemplate:     styleTemplate,
		size:              size,
		viewRetryInterval: retry.DefaultInterval,
	}
}

// CreateCharacter は正準キャラクター画像を1回の生成呼び出しで作ります。
// 参照画像は渡しません。ここで作られた画像が以降の全生成の視覚的アンカーになるのだ。
func (dr *DesignRunner) CreateCharacter(ctx context.Context, bible domain.ConsistencyBible) (*domain.ImageRef, error) {
	slog.InfoContext(ctx, "正準キャラクター画像を生成します")

	prompt := prompts.BuildCharacterCreationPrompt(dr.styleTemplate, bible.CharacterVisuals)
	img, err := dr.generator.GenerateImage(ctx, gemini.ImageRequest{
		Prompt:      prompt,
		Size:        dr.size,
		AspectRatio: canonicalAspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("正準キャラクター画像の生成に失敗しました: %w", err)
	}
	return img, nil
}

// CreateReferenceSheet は、正準画像を参照に三面図を視点ごとに生成します。
// 各視点は独立に最大3回、1秒×試行回数の線形バックオフでリトライされます。
// 試行が尽きた視点は nil のまま残し、他の視点の生成は続行します。
// 認可エラーだけは即座に中断し、呼び出し側へ伝播させるのだ。
func (dr *DesignRunner) CreateReferenceSheet(
	ctx context.Context,
	characterVisuals string,
	canonical *domain.ImageRef,
) (domain.CharacterReferenceSheet, error) {
	var sheet domain.CharacterReferenceSheet

	policy := retry.Linear(viewAttempts).WithFatal(gemini.IsAuthorization)
	policy.Interval = dr.viewRetryInterval

	for _, view := range domain.ReferenceViews {
		prompt := prompts.BuildReferenceViewPrompt(dr.styleTemplate, characterVisuals, view)

		img, err := retry.Do(ctx, policy, func(ctx context.Context) (*domain.ImageRef, error) {
			return dr.generator.GenerateImage(ctx, gemini.ImageRequest{
				Prompt:      prompt,
				Reference:   canonical,
				Size:        dr.size,
				AspectRatio: canonicalAspectRatio,
			})
		})
		if err != nil {
			if gemini.IsAuthorization(err) {
				return sheet, fmt.Errorf("三面図の生成が認可エラーで中断しました: %w", err)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sheet, err
			}
			slog.WarnContext(ctx, "三面図の視点生成が試行上限に達しました",
				"view", string(view), "error", err)
			continue
		}

		sheet.SetView(view, img)
		slog.InfoContext(ctx, "三面図の視点を生成しました", "view", string(view))
	}

	return sheet, nil
}
