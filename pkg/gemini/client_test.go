package gemini

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestFirstInlineImage(t *testing.T) {
	t.Run("最初のインライン画像が抽出されること", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{
					Content: &genai.Content{
						Parts: []*genai.Part{
							{Text: "here is your image"},
							{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("first")}},
							{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte("second")}},
						},
					},
				},
			},
		}

		img, err := firstInlineImage(resp)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, []byte("first"), img.Data)
	})

	t.Run("画像が無い応答は ErrNoImageProduced になること", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "sorry, text only"}}}},
			},
		}

		_, err := firstInlineImage(resp)
		assert.True(t, IsNoImageProduced(err))
	})

	t.Run("nil応答でもpanicしないこと", func(t *testing.T) {
		_, err := firstInlineImage(nil)
		assert.True(t, IsNoImageProduced(err))
	})
}

func TestCollectText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: `{"title":`}, {Text: `"fox"}`}}}},
		},
	}
	assert.Equal(t, `{"title":"fox"}`, collectText(resp))
	assert.Equal(t, "", collectText(nil))
}

func TestClassifyError(t *testing.T) {
	t.Run("403は認可エラーに分類されること", func(t *testing.T) {
		err := classifyError(genai.APIError{Code: 403, Status: "PERMISSION_DENIED"})
		assert.True(t, IsAuthorization(err))
	})

	t.Run("404もエンタイトルメント不在として認可扱いになること", func(t *testing.T) {
		err := classifyError(genai.APIError{Code: 404, Status: "NOT_FOUND"})
		assert.True(t, IsAuthorization(err))
	})

	t.Run("429はレート制限に分類されること", func(t *testing.T) {
		err := classifyError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"})
		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, KindRateLimited, be.Kind)
		assert.False(t, IsAuthorization(err))
	})

	t.Run("API以外のエラーは unknown になり元エラーを保持すること", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := classifyError(cause)
		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, KindUnknown, be.Kind)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("nilはnilのままであること", func(t *testing.T) {
		assert.NoError(t, classifyError(nil))
	})
}

func TestAnalysisCacheKey(t *testing.T) {
	k1 := analysisCacheKey("model-a", "script")
	k2 := analysisCacheKey("model-a", "script")
	k3 := analysisCacheKey("model-b", "script")

	assert.Equal(t, k1, k2, "同一入力からは同一キーが生成されるのだ")
	assert.NotEqual(t, k1, k3, "モデルが違えばキーも違うのだ")
}
