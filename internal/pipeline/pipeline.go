// Package pipeline は、CLI サブコマンドから呼ばれる実行フェーズの束です。
// 共有コンポーネントの組み立ては internal/builder に委ね、ここでは
// 「どのフェーズをどの順で走らせるか」だけを記述します。
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

const (
	planFileName     = "storyboard_plan.json"
	metadataFileName = "storyboard.json"
	mimeJSON         = "application/json; charset=utf-8"
)

// ExecuteGenerate は、台本解析から画像生成・書き出しまでを一気通貫で実行するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	// ライブ進捗の購読。書き出しを待つ消費者がいなくても生成は止まらないのだ。
	stopWatch := watchProgress(ctx, appCtx)
	defer stopWatch()

	data, err := appCtx.Manager.Generate(ctx, cfg.Options.Source())
	if err != nil {
		return fmt.Errorf("生成パイプラインの実行に失敗したのだ: %w", err)
	}

	if missing := data.IncompleteSceneIDs(); len(missing) > 0 {
		slog.Warn("未完成のシーンが残っています。ドキュメントにはプレースホルダーが入るのだ", "scene_ids", missing)
	}

	return exportCurrent(ctx, appCtx)
}

// ExecuteAnalyzeOnly は台本解析だけを行い、計画JSONを保存するのだ。
func ExecuteAnalyzeOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	plan, err := appCtx.Manager.Analyze(ctx, cfg.Options.Source())
	if err != nil {
		return fmt.Errorf("台本解析に失敗したのだ: %w", err)
	}

	raw, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("計画のJSON化に失敗しました: %w", err)
	}

	planPath, err := publisher.ResolveOutputPath(cfg.Options.OutputDir, planFileName)
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, planPath, strings.NewReader(string(raw)), mimeJSON); err != nil {
		return fmt.Errorf("計画の保存に失敗しました: %w", err)
	}

	slog.Info("解析が完了したのだ！", "title", plan.Title, "scenes", len(plan.Scenes), "path", planPath)
	return nil
}

// ExecuteImageOnly は、保存済みの計画JSONを読み込んで画像生成と書き出しを実行するのだ。
func ExecuteImageOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	plan, err := loadPlan(ctx, appCtx, cfg.Options.ScriptFile)
	if err != nil {
		return err
	}

	stopWatch := watchProgress(ctx, appCtx)
	defer stopWatch()

	if _, err := appCtx.Manager.GenerateFromPlan(ctx, plan); err != nil {
		return fmt.Errorf("画像生成に失敗したのだ: %w", err)
	}

	return exportCurrent(ctx, appCtx)
}

// ExecuteCharacterOnly は、キャラクターの正準画像と三面図だけを生成して保存するのだ。
func ExecuteCharacterOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	plan, err := appCtx.Manager.Analyze(ctx, cfg.Options.Source())
	if err != nil {
		return fmt.Errorf("台本解析に失敗したのだ: %w", err)
	}

	_, sheet, err := appCtx.Manager.CreateCharacterAssets(ctx, plan.ConsistencyBible)
	if err != nil {
		return fmt.Errorf("キャラクター資産の生成に失敗したのだ: %w", err)
	}

	for _, view := range domain.ReferenceViews {
		if sheet.View(view) == nil {
			slog.Warn("生成できなかった視点があります", "view", string(view))
		}
	}

	// シーン画像は未生成なので、ドキュメント側はプレースホルダーになる
	result, err := appCtx.Manager.Export(ctx, publisher.Options{OutputDir: cfg.Options.OutputDir})
	if err != nil {
		return err
	}
	slog.Info("キャラクター資産を保存したのだ！", "images", len(result.ImagePaths))
	return nil
}

// ExecuteExportOnly は、保存済みのメタデータと画像から成果物を再構築するのだ。
func ExecuteExportOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	metadataPath, err := publisher.ResolveOutputPath(cfg.Options.OutputDir, metadataFileName)
	if err != nil {
		return err
	}
	rc, err := appCtx.Reader.Open(ctx, metadataPath)
	if err != nil {
		return fmt.Errorf("メタデータ '%s' の読み込みに失敗しました: %w", metadataPath, err)
	}
	defer rc.Close()

	var data domain.StoryboardData
	if err := json.NewDecoder(rc).Decode(&data); err != nil {
		return fmt.Errorf("メタデータ '%s' のデコードに失敗しました: %w", metadataPath, err)
	}

	result, err := appCtx.Manager.ExportSaved(ctx, &data, publisher.Options{
		OutputDir:   cfg.Options.OutputDir,
		WithArchive: cfg.Options.WithArchive,
	})
	if err != nil {
		return fmt.Errorf("書き出しに失敗したのだ: %w", err)
	}

	slog.Info("書き出しが完了したのだ！", "document", result.DocumentPath, "archive", result.ArchivePath)
	return nil
}

// exportCurrent は現在のセッション状態をドキュメント（と任意でアーカイブ）として書き出し、
// 機械可読メタデータも隣に保存します。
func exportCurrent(ctx context.Context, appCtx *builder.AppContext) error {
	opts := publisher.Options{
		OutputDir:   appCtx.Options.OutputDir,
		WithArchive: appCtx.Options.WithArchive,
	}

	result, err := appCtx.Manager.Export(ctx, opts)
	if err != nil {
		// 未完成シーンによるアーカイブの拒否は想定内。ドキュメントは書き出し済みなのだ。
		var precondErr *publisher.ExportPreconditionError
		if !errors.As(err, &precondErr) {
			return fmt.Errorf("成果物の書き出しに失敗したのだ: %w", err)
		}
		slog.Warn("アーカイブは未完成のためスキップしたのだ", "missing_scene_ids", precondErr.MissingScenes)
	}

	// エクスポートのみの再実行に備えてメタデータを保存しておくのだ
	snap := appCtx.Manager.Store().Snapshot()
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("メタデータのJSON化に失敗しました: %w", err)
	}
	metadataPath, err := publisher.ResolveOutputPath(opts.OutputDir, metadataFileName)
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, metadataPath, strings.NewReader(string(raw)), mimeJSON); err != nil {
		return fmt.Errorf("メタデータの保存に失敗しました: %w", err)
	}

	slog.Info("すべての成果物を書き出したのだ！",
		"document", result.DocumentPath,
		"archive", result.ArchivePath,
		"images", len(result.ImagePaths))
	return nil
}

// loadPlan は保存済みの計画JSONを読み込んで検証するのだ。
func loadPlan(ctx context.Context, appCtx *builder.AppContext, path string) (domain.StoryboardPlan, error) {
	if path == "" {
		return domain.StoryboardPlan{}, fmt.Errorf("計画JSON（--script-file）を指定してほしいのだ")
	}

	rc, err := appCtx.Reader.Open(ctx, path)
	if err != nil {
		return domain.StoryboardPlan{}, fmt.Errorf("計画JSON '%s' の読み込みに失敗しました: %w", path, err)
	}
	defer rc.Close()

	var plan domain.StoryboardPlan
	if err := json.NewDecoder(rc).Decode(&plan); err != nil {
		return domain.StoryboardPlan{}, fmt.Errorf("計画JSON '%s' のデコードに失敗しました: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return domain.StoryboardPlan{}, fmt.Errorf("計画JSONが不正です: %w", err)
	}
	return plan, nil
}

// watchProgress はストアの変更通知を購読し、シーンの進行をログに流すのだ。
// 返されたstop関数を呼ぶと購読を終了します。
func watchProgress(ctx context.Context, appCtx *builder.AppContext) func() {
	st := appCtx.Manager.Store()
	events := st.Watch()
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Kind != store.EventScenePatched {
					continue
				}
				snap := st.Snapshot()
				if snap == nil {
					continue
				}
				if idx := snap.SceneIndex(ev.SceneID); idx >= 0 {
					sc := snap.Scenes[idx]
					slog.Info("シーン進捗",
						"scene_id", sc.ID,
						"phase", sc.RetryPhase.String(),
						"image_a", sc.ImageA != nil,
						"image_b", sc.ImageB != nil)
				}
			}
		}
	}()

	return func() { close(done) }
}
