// Package publisher は、完成・未完成を問わず絵コンテデータを成果物として書き出す
// 出力境界です。Markdown ドキュメントは欠落を許容し、zip アーカイブは完全性を要求します。
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// OutputWriter はデータを外部ストレージに保存するためのインターフェースです。
// remoteio.OutputWriter がこれを満たします。
type OutputWriter interface {
	Write(ctx context.Context, path string, data io.Reader, mimeType string) error
}

// InputReader は保存済みデータを読み戻すためのインターフェースです。
// remoteio.InputReader がこれを満たします。
type InputReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

const (
	defaultDocumentName = "storyboard.md"
	defaultArchiveName  = "storyboard.zip"
	defaultImageDirName = "images"

	mimeMarkdown = "text/markdown; charset=utf-8"
	mimeZip      = "application/zip"
	mimePNG      = "image/png"
)

// Options は書き出し動作を制御する設定項目です。
type Options struct {
	OutputDir string
	// WithArchive を立てると zip アーカイブも書き出します。全シーン完成が前提なのだ。
	WithArchive bool
}

// PublishResult は書き出された成果物のパス情報です。
type PublishResult struct {
	DocumentPath string
	ArchivePath  string
	ImagePaths   []string
}

// StoryboardPublisher は成果物の永続化を担います。
// 出力先はローカルディレクトリと gs:// の両方に対応します。
type StoryboardPublisher struct {
	writer OutputWriter
}

// NewStoryboardPublisher は書き出し先を注入して初期化します。
func NewStoryboardPublisher(writer OutputWriter) *StoryboardPublisher {
	return &StoryboardPublisher{writer: writer}
}

// Publish は画像の保存と Markdown ドキュメントの書き出しを一括して実行します。
// 未生成の画像はスキップされ、ドキュメント側ではプレースホルダーになります。
func (p *StoryboardPublisher) Publish(ctx context.Context, data *domain.StoryboardData, opts Options) (PublishResult, error) {
	result := PublishResult{}
	if data == nil {
		return result, fmt.Errorf("書き出し対象のデータがありません")
	}

	imageDir, err := ResolveOutputPath(opts.OutputDir, defaultImageDirName)
	if err != nil {
		return result, err
	}

	savedPaths, err := p.saveImages(ctx, data, imageDir)
	if err != nil {
		return result, fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	result.ImagePaths = savedPaths

	docPath, err := ResolveOutputPath(opts.OutputDir, defaultDocumentName)
	if err != nil {
		return result, err
	}
	content := BuildDocument(data, defaultImageDirName)
	if err := p.writer.Write(ctx, docPath, strings.NewReader(content), mimeMarkdown); err != nil {
		return result, fmt.Errorf("ドキュメントの書き込みに失敗しました: %w", err)
	}
	result.DocumentPath = docPath
	slog.InfoContext(ctx, "ドキュメントを書き出しました", "path", docPath)

	if opts.WithArchive {
		archivePath, err := p.PublishArchive(ctx, data, opts.OutputDir)
		if err != nil {
			return result, err
		}
		result.ArchivePath = archivePath
	}

	return result, nil
}

// PublishArchive は zip アーカイブを構築して書き出します。
// 未完成のシーンがあれば ExportPreconditionError で拒否します。
func (p *StoryboardPublisher) PublishArchive(ctx context.Context, data *domain.StoryboardData, outputDir string) (string, error) {
	buf, err := BuildArchive(data)
	if err != nil {
		return "", err
	}

	archivePath, err := ResolveOutputPath(outputDir, defaultArchiveName)
	if err != nil {
		return "", err
	}
	if err := p.writer.Write(ctx, archivePath, buf, mimeZip); err != nil {
		return "", fmt.Errorf("アーカイブの書き込みに失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "アーカイブを書き出しました", "path", archivePath)
	return archivePath, nil
}

// saveImages は生成済みの全画像を imageDir へ保存し、保存先パスを返します。
func (p *StoryboardPublisher) saveImages(ctx context.Context, data *domain.StoryboardData, imageDir string) ([]string, error) {
	saved := make([]string, 0, len(data.Scenes)*2+4)

	write := func(fileName string, img *domain.ImageRef) error {
		if img == nil || len(img.Data) == 0 {
			return nil
		}
		fullPath, err := ResolveOutputPath(imageDir, fileName)
		if err != nil {
			return err
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(img.Data), mimePNG); err != nil {
			return err
		}
		saved = append(saved, fullPath)
		return nil
	}

	if err := write(CanonicalImageName, data.CanonicalCharacter); err != nil {
		return nil, err
	}
	if sheet := data.CharacterReferenceSheet; sheet != nil {
		for _, view := range domain.ReferenceViews {
			if err := write(ReferenceViewName(view), sheet.View(view)); err != nil {
				return nil, err
			}
		}
	}
	for _, scene := range data.Scenes {
		if err := write(SceneImageName(scene.ID, "a"), scene.ImageA); err != nil {
			return nil, err
		}
		if err := write(SceneImageName(scene.ID, "b"), scene.ImageB); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

// ReattachImages は、保存済みの画像ファイルをセッションデータへ読み戻します。
// エクスポートのみの実行で、メタデータJSONから復元したデータに画像を再付与するために使うのだ。
func ReattachImages(ctx context.Context, reader InputReader, data *domain.StoryboardData, outputDir string) error {
	imageDir, err := ResolveOutputPath(outputDir, defaultImageDirName)
	if err != nil {
		return err
	}

	load := func(fileName string) (*domain.ImageRef, error) {
		fullPath, err := ResolveOutputPath(imageDir, fileName)
		if err != nil {
			return nil, err
		}
		rc, err := reader.Open(ctx, fullPath)
		if err != nil {
			return nil, nil // 保存されていない画像は欠落のまま扱う
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("画像 %s の読み込みに失敗しました: %w", fullPath, err)
		}
		return &domain.ImageRef{Data: body, MimeType: mimePNG, Path: fullPath}, nil
	}

	if data.CanonicalCharacter == nil || len(data.CanonicalCharacter.Data) == 0 {
		img, err := load(CanonicalImageName)
		if err != nil {
			return err
		}
		if img != nil {
			data.CanonicalCharacter = img
		}
	}

	if data.CharacterReferenceSheet != nil {
		for _, view := range domain.ReferenceViews {
			if data.CharacterReferenceSheet.View(view) != nil {
				continue
			}
			img, err := load(ReferenceViewName(view))
			if err != nil {
				return err
			}
			if img != nil {
				data.CharacterReferenceSheet.SetView(view, img)
			}
		}
	}

	for i := range data.Scenes {
		scene := &data.Scenes[i]
		if scene.ImageA == nil || len(scene.ImageA.Data) == 0 {
			img, err := load(SceneImageName(scene.ID, "a"))
			if err != nil {
				return err
			}
			if img != nil {
				scene.ImageA = img
			}
		}
		if scene.ImageB == nil || len(scene.ImageB.Data) == 0 {
			img, err := load(SceneImageName(scene.ID, "b"))
			if err != nil {
				return err
			}
			if img != nil {
				scene.ImageB = img
			}
		}
	}
	return nil
}
