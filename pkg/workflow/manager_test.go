package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/runner"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

func managerPlan() domain.StoryboardPlan {
	scenes := make([]domain.Scene, domain.MinScenes)
	for i := range scenes {
		scenes[i] = domain.Scene{
			ID:                 i + 1,
			Title:              fmt.Sprintf("シーン%d", i+1),
			ImageADescription:  fmt.Sprintf("scene-%d-frame-a", i+1),
			ImageBDescription:  fmt.Sprintf("scene-%d-frame-b", i+1),
			MotionPrompt:       "カメラが寄る",
			CharacterDirection: domain.DirectionForward,
		}
	}
	return domain.StoryboardPlan{
		Title: "ワークフローテスト",
		ConsistencyBible: domain.ConsistencyBible{
			CharacterVisuals:   "赤い外套の旅人",
			EnvironmentVisuals: "雪原の峠道",
		},
		Scenes: scenes,
	}
}

// sheetAuthGenerator は、三面図の生成だけが認可エラーで失敗する画像生成スタブです。
// シーンフレームの生成はコンテキストが畳まれるまでブロックし、並行実行中の
// 片側の致命エラーがもう片側へ波及する状況を再現するのだ。
type sheetAuthGenerator struct{}

func (g *sheetAuthGenerator) GenerateImage(ctx context.Context, req gemini.ImageRequest) (*domain.ImageRef, error) {
	if strings.Contains(req.Prompt, "TURNAROUND") {
		return nil, &gemini.BackendError{Kind: gemini.KindAuthorization, Err: errors.New("permission denied")}
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestManager_GenerateImages_SheetAuthorizationAbort(t *testing.T) {
	st := store.New()
	st.Reset(managerPlan())

	gen := &sheetAuthGenerator{}
	m := &Manager{
		cfg:          DefaultConfig(),
		store:        st,
		generator:    gen,
		designRunner: runner.NewDesignRunner(gen, "", gemini.ImageSize1K),
	}

	canonical := &domain.ImageRef{Data: []byte{0x89, 0x50}, MimeType: "image/png"}
	err := m.GenerateImages(context.Background(), canonical)
	require.Error(t, err)
	assert.True(t, gemini.IsAuthorization(err), "三面図側の認可エラーがそのまま伝播するべきです")

	snap := st.Snapshot()

	t.Run("ストアのエラー状態に記録される", func(t *testing.T) {
		assert.True(t, gemini.IsAuthorization(st.Err()))
	})

	t.Run("シーンに偽の失敗フラグが残らない", func(t *testing.T) {
		for _, sc := range snap.Scenes {
			assert.False(t, sc.ImageAFailed, "シーン%d", sc.ID)
			assert.False(t, sc.ImageBFailed, "シーン%d", sc.ID)
		}
	})

	t.Run("生成中フラグが残らない", func(t *testing.T) {
		for _, sc := range snap.Scenes {
			assert.False(t, sc.IsGeneratingImage, "シーン%d", sc.ID)
			assert.Equal(t, domain.PhaseIdle, sc.RetryPhase, "シーン%d", sc.ID)
		}
	})
}
