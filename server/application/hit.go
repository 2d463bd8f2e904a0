package application

import "log/slog"

// HitResult はヒット解決の呼び出し結果です。
type HitResult uint8

const (
	HitNoTarget HitResult = iota // 対象なし。状態もスコアも変化しない
	HitCorrect
	HitIncorrect
)

func (r HitResult) String() string {
	switch r {
	case HitNoTarget:
		return "no_target"
	case HitCorrect:
		return "correct"
	case HitIncorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// HitResolver は外部入力層からのヒットイベントをちょうど1回の状態遷移に
// 対応付けます。どのエンティティが叩かれたかの判定（当たり判定）は
// 描画層の責務で、ここにはエンティティIDだけが届きます。
type HitResolver struct {
	entities []*Entity
	cb       *Callbacks
}

func NewHitResolver(entities []*Entity, cb *Callbacks) *HitResolver {
	return &HitResolver{entities: entities, cb: cb}
}

// Resolve はエンティティIDに対するヒットを解決します。
// Up 以外のエンティティへのヒット（二度叩き、転倒後の遅延ヒット）は
// HitNoTarget として吸収され、エラーにはなりません。
// 解決フラグはスコアコールバックより前に同期的に立てるため、
// 同一tickに同じエンティティへ2つのヒットが届いても解決は一度きりです。
func (r *HitResolver) Resolve(entityID int) HitResult {
	if entityID < 0 || entityID >= len(r.entities) {
		slog.Warn("hit: unknown entity", "entityID", entityID)
		return HitNoTarget
	}
	e := r.entities[entityID]
	if !e.Hittable() {
		return HitNoTarget
	}
	if !e.MarkResolved() {
		return HitNoTarget
	}

	payload := *e.Payload()
	outcome := OutcomeIncorrect
	result := HitIncorrect
	if payload.Rewarded {
		outcome = OutcomeCorrect
		result = HitCorrect
	}

	// スコア反映は転倒アニメーションの開始より前。
	// スコアのレイテンシがアニメーション長に依存しないようにする
	r.cb.resolved(outcome, payload)
	if result == HitCorrect {
		r.cb.correctHit(e.ID)
	} else {
		r.cb.incorrectHit(e.ID)
	}

	e.BeginFall(outcome)
	return result
}
