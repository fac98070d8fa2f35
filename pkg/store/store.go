// Package store は、生成セッションの唯一のライブな StoryboardData を所有し、
// 非同期な生産者からのパッチ書き込みと、任意個の消費者によるスナップショット
// 読み取りを仲介します。書き込みは全てトップレベルの丸ごと置換（copy-on-write）
// なので、読者が中途半端な更新を観測することはありません。
package store

import (
	"fmt"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// EventKind はストアの変更通知の種別です。
type EventKind int

const (
	EventReset EventKind = iota
	EventScenePatched
	EventCanonicalSet
	EventSheetAttached
	EventSessionError
)

// Event は、ライブ進捗を購読する消費者への変更通知です。
type Event struct {
	Kind    EventKind
	SceneID int // EventScenePatched のときのみ有効
}

// ScenePatch は1シーンへの部分更新です。nil でないフィールドだけが適用されます。
type ScenePatch struct {
	ImageA       *domain.ImageRef
	ImageB       *domain.ImageRef
	Generating   *bool
	RetryPhase   *domain.RetryPhase
	ImageAFailed *bool
	ImageBFailed *bool
}

// Store は進捗・状態ストアの実体です。
// セッションごとに書き込みを行う生産者は1つ（実行中のパイプライン）だけで、
// 読者はロック競合なしにスナップショットを取得できます。
type Store struct {
	mu       sync.RWMutex
	data     *domain.StoryboardData
	err      error
	watchers []chan Event
}

// New は空のストアを生成します。
func New() *Store {
	return &Store{}
}

// Reset は新しい解析プランでセッションデータを丸ごと置き換えます。
// 以前のセッションの進捗・エラー状態は破棄されるのだ。
func (s *Store) Reset(plan domain.StoryboardPlan) {
	s.mu.Lock()
	s.data = domain.NewStoryboardData(plan)
	s.err = nil
	s.mu.Unlock()
	s.notify(Event{Kind: EventReset})
}

// Snapshot は現在のセッションデータのディープコピーを返します。
// セッション未開始なら nil です。読者はこのコピーを自由に保持してよいのだ。
func (s *Store) Snapshot() *domain.StoryboardData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// PatchScene は、ID に一致するシーンへ部分更新をマージします。
// シーンの挿入・削除はここでは行いません。未知の ID はエラーです。
// 画像の設定は対応する失敗フラグを同時にクリアします（成功が失敗表示を上書きする不変条件）。
func (s *Store) PatchScene(id int, patch ScenePatch) error {
	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return fmt.Errorf("セッションが開始されていません")
	}

	next := s.data.Clone()
	idx := next.SceneIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("シーン %d が見つかりません", id)
	}

	sc := &next.Scenes[idx]
	if patch.ImageA != nil {
		sc.ImageA = patch.ImageA.Clone()
		sc.ImageAFailed = false
	}
	if patch.ImageB != nil {
		sc.ImageB = patch.ImageB.Clone()
		sc.ImageBFailed = false
	}
	if patch.Generating != nil {
		sc.IsGeneratingImage = *patch.Generating
	}
	if patch.RetryPhase != nil {
		sc.RetryPhase = *patch.RetryPhase
	}
	if patch.ImageAFailed != nil {
		sc.ImageAFailed = *patch.ImageAFailed
	}
	if patch.ImageBFailed != nil {
		sc.ImageBFailed = *patch.ImageBFailed
	}

	s.data = next
	s.mu.Unlock()
	s.notify(Event{Kind: EventScenePatched, SceneID: id})
	return nil
}

// SetCanonicalCharacter は正準キャラクター画像を記録します。
func (s *Store) SetCanonicalCharacter(img *domain.ImageRef) {
	s.mu.Lock()
	if s.data != nil {
		next := s.data.Clone()
		next.CanonicalCharacter = img.Clone()
		s.data = next
	}
	s.mu.Unlock()
	s.notify(Event{Kind: EventCanonicalSet})
}

// AttachReferenceSheet は三面図をセッションデータに取り付けます。
func (s *Store) AttachReferenceSheet(sheet domain.CharacterReferenceSheet) {
	s.mu.Lock()
	if s.data != nil {
		next := s.data.Clone()
		copied := sheet.Clone()
		next.CharacterReferenceSheet = &copied
		s.data = next
	}
	s.mu.Unlock()
	s.notify(Event{Kind: EventSheetAttached})
}

// SetError はセッション致命的なエラー状態（認可失敗等）を記録します。
func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.notify(Event{Kind: EventSessionError})
}

// Err は記録済みのセッションエラーを返します。なければ nil です。
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Watch は変更通知チャネルを返します。
// 通知は非ブロッキングで送られ、受信が追いつかない場合は取りこぼします。
// 最新状態は常に Snapshot で取得できるので、通知は「見に行く合図」に過ぎないのだ。
func (s *Store) Watch() <-chan Event {
	ch := make(chan Event, 64)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	watchers := s.watchers
	s.mu.RUnlock()
	for _, ch := range watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
