package runner

import (
	"context"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// PublishRunner は、ストアの現在状態を成果物として書き出す実行実体です。
// ドキュメントは生成途中でも書き出せますが、アーカイブは全シーン完成が前提です。
type PublishRunner struct {
	publisher *publisher.StoryboardPublisher
	store     *store.Store
}

// NewPublishRunner は依存関係を注入して初期化します。
func NewPublishRunner(pub *publisher.StoryboardPublisher, st *store.Store) *PublishRunner {
	return &PublishRunner{
		publisher: pub,
		store:     st,
	}
}

// Run はストアのスナップショットを取得して書き出しを実行します。
func (pr *PublishRunner) Run(ctx context.Context, opts publisher.Options) (publisher.PublishResult, error) {
	snap := pr.store.Snapshot()
	if snap == nil {
		return publisher.PublishResult{}, fmt.Errorf("書き出し対象のセッションがありません")
	}
	return pr.publisher.Publish(ctx, snap, opts)
}
