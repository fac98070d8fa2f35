package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
)

// mockGenerator は呼び出しを記録し、結果を差し替えられる画像生成モックです。
type mockGenerator struct {
	requests []gemini.ImageRequest
	respond  func(req gemini.ImageRequest) (*domain.ImageRef, error)
}

func (m *mockGenerator) GenerateImage(_ context.Context, req gemini.ImageRequest) (*domain.ImageRef, error) {
	m.requests = append(m.requests, req)
	if m.respond != nil {
		return m.respond(req)
	}
	return &domain.ImageRef{Data: []byte{0x89}, MimeType: "image/png"}, nil
}

func testBible() domain.ConsistencyBible {
	return domain.ConsistencyBible{
		CharacterVisuals:   "緑髪のずんだ妖精、白いワンピース",
		EnvironmentVisuals: "広葉樹の森",
	}
}

func newTestDesignRunner(gen ImageGenerator) *DesignRunner {
	dr := NewDesignRunner(gen, "", gemini.ImageSize1K)
	dr.viewRetryInterval = time.Millisecond
	return dr
}

func TestDesignRunner_CreateCharacter(t *testing.T) {
	gen := &mockGenerator{}
	dr := newTestDesignRunner(gen)

	img, err := dr.CreateCharacter(context.Background(), testBible())
	require.NoError(t, err)
	require.NotNil(t, img)

	require.Len(t, gen.requests, 1, "正準画像は1回の呼び出しで作られるべきです")
	req := gen.requests[0]
	assert.Nil(t, req.Reference, "正準画像の生成に参照画像を渡してはいけません")
	assert.Equal(t, canonicalAspectRatio, req.AspectRatio)
	assert.Contains(t, req.Prompt, "緑髪のずんだ妖精")
}

func TestDesignRunner_CreateReferenceSheet(t *testing.T) {
	t.Run("全視点が生成される", func(t *testing.T) {
		gen := &mockGenerator{}
		dr := newTestDesignRunner(gen)
		canonical := &domain.ImageRef{Data: []byte{1}, MimeType: "image/png"}

		sheet, err := dr.CreateReferenceSheet(context.Background(), testBible().CharacterVisuals, canonical)
		require.NoError(t, err)
		assert.NotNil(t, sheet.Front)
		assert.NotNil(t, sheet.Side)
		assert.NotNil(t, sheet.Back)

		require.Len(t, gen.requests, len(domain.ReferenceViews))
		for _, req := range gen.requests {
			assert.NotNil(t, req.Reference, "各視点の生成には正準画像を参照として渡すべきです")
		}
	})

	t.Run("試行が尽きた視点は nil のまま残り他の視点は続行する", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.respond = func(req gemini.ImageRequest) (*domain.ImageRef, error) {
			if strings.Contains(req.Prompt, "SIDE") {
				return nil, gemini.ErrNoImageProduced
			}
			return &domain.ImageRef{Data: []byte{1}, MimeType: "image/png"}, nil
		}
		dr := newTestDesignRunner(gen)

		sheet, err := dr.CreateReferenceSheet(context.Background(), testBible().CharacterVisuals, nil)
		require.NoError(t, err, "視点単位の失敗は呼び出し元に致命傷を与えません")
		assert.NotNil(t, sheet.Front)
		assert.Nil(t, sheet.Side, "失敗した視点は空のまま残るべきです")
		assert.NotNil(t, sheet.Back)

		sideAttempts := 0
		for _, req := range gen.requests {
			if strings.Contains(req.Prompt, "SIDE") {
				sideAttempts++
			}
		}
		assert.Equal(t, viewAttempts, sideAttempts, "各視点は独立に3回まで試行されるべきです")
	})

	t.Run("認可エラーは即座に中断する", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.respond = func(req gemini.ImageRequest) (*domain.ImageRef, error) {
			return nil, &gemini.BackendError{Kind: gemini.KindAuthorization, Err: errors.New("forbidden")}
		}
		dr := newTestDesignRunner(gen)

		_, err := dr.CreateReferenceSheet(context.Background(), testBible().CharacterVisuals, nil)
		require.Error(t, err)
		assert.True(t, gemini.IsAuthorization(err))
		assert.Len(t, gen.requests, 1, "認可エラーはリトライも後続視点も許しません")
	})

	t.Run("コンテキストの中断で後続視点へ進まない", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		gen := &mockGenerator{}
		gen.respond = func(req gemini.ImageRequest) (*domain.ImageRef, error) {
			cancel()
			return nil, ctx.Err()
		}
		dr := newTestDesignRunner(gen)

		_, err := dr.CreateReferenceSheet(ctx, testBible().CharacterVisuals, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, gen.requests, 1, "畳まれたコンテキストで視点を回し続けてはいけません")
	})
}
