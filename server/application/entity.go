package application

import "log/slog"

// EntityState はエンティティ（出現ポイント）のライフサイクル状態です。
// 遷移は Idle → Rising → Up → Falling → Idle の閉路のみで、
// 他のエッジは存在しません。
type EntityState uint8

const (
	StateIdle EntityState = iota
	StateRising
	StateUp
	StateFalling
)

func (s EntityState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRising:
		return "rising"
	case StateUp:
		return "up"
	case StateFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// Outcome はエンティティ1サイクルの解決結果です。
type Outcome uint8

const (
	OutcomeCorrect Outcome = iota // 報酬ペイロードへのヒット
	OutcomeIncorrect
	OutcomeTimeout // ヒットされずに保持時間満了（Watchdog回収含む）
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// EntityEvent は Tick 中に発生した状態遷移を呼び出し側へ通知します。
type EntityEvent uint8

const (
	EventNone EntityEvent = iota
	EventRose     // Rising 完了、Up に定着
	EventTimedOut // 保持時間満了、Falling 開始
	EventFell     // Falling 完了、Idle に復帰
)

// Entity は1つの出現ポイントの状態機械です。
// locked は Rising/Falling の遷移アニメーション中ずっと true で、
// エンティティへの遷移を全順序化します。locked の間に新しい遷移は始まりません。
// payload は state が Rising/Up/Falling のときに限り非nilです。
type Entity struct {
	ID int

	state    EntityState
	locked   bool
	payload  *Payload
	resolved bool // このUpサイクルでヒット解決済みか（同tick二重ヒット防止）

	animRemaining int   // Rising/Falling の残りtick
	holdRemaining int   // Up の残りtick
	upSince       int64 // Up に入ったtick（Watchdogの判定基準）

	animTicks int // 遷移アニメーション長（上下共通）
	holdTicks int // Up の保持時間
}

func NewEntity(id, animTicks, holdTicks int) *Entity {
	return &Entity{
		ID:        id,
		animTicks: animTicks,
		holdTicks: holdTicks,
	}
}

func (e *Entity) State() EntityState { return e.state }
func (e *Entity) Locked() bool       { return e.locked }
func (e *Entity) Payload() *Payload  { return e.payload }
func (e *Entity) UpSince() int64     { return e.upSince }

// AvailableForSpawn はスケジューラが次の出現先に選べるかを返します。
func (e *Entity) AvailableForSpawn() bool {
	return e.state == StateIdle && !e.locked
}

// Hittable はヒット解決の対象になれるかを返します。
// Falling 中や解決済みのエンティティへの遅延ヒットはここで弾かれます。
func (e *Entity) Hittable() bool {
	return e.state == StateUp && !e.locked && !e.resolved
}

// MarkResolved は解決フラグを立てます。既に解決済みなら false を返します。
// ヒット解決は BeginFall やスコアコールバックより前に必ずこれを通すことで、
// 同一tick内の二重ヒットでも解決が一度きりであることを保証します。
func (e *Entity) MarkResolved() bool {
	if e.resolved {
		return false
	}
	e.resolved = true
	return true
}

// BeginRise は Idle のエンティティを Rising に遷移させ、ペイロードを割り当てます。
// 非Idleのエンティティに対して呼ばれた場合は呼び出し側のロジックエラーとみなし、
// 進行中の遷移を強制完了させてから新しい出現を受け付けます。
// これによりエンティティが同時に2方向へアニメーションすることはありません。
func (e *Entity) BeginRise(payload Payload) {
	if e.state != StateIdle || e.locked {
		slog.Warn("entity: rise requested on non-idle entity, forcing completion",
			"entityID", e.ID, "state", e.state.String(), "locked", e.locked)
		e.ForceIdle()
	}
	p := payload
	e.locked = true
	e.state = StateRising
	e.payload = &p
	e.animRemaining = e.animTicks
}

// BeginFall は Up のエンティティを Falling に遷移させます。
// 保持タイマーは破棄されます。Up 以外の状態では何もせず false を返すため、
// Watchdogの再発火や遅延した転倒要求は自然に吸収されます。
func (e *Entity) BeginFall(outcome Outcome) bool {
	if e.state != StateUp {
		return false
	}
	slog.Debug("entity: fall", "entityID", e.ID, "outcome", outcome.String())
	e.locked = true
	e.state = StateFalling
	e.holdRemaining = 0
	e.animRemaining = e.animTicks
	return true
}

// Tick はエンティティ内部のタイマーを1tick進め、完了した遷移を報告します。
func (e *Entity) Tick(now int64) EntityEvent {
	switch e.state {
	case StateRising:
		e.animRemaining--
		if e.animRemaining <= 0 {
			e.state = StateUp
			e.locked = false
			e.upSince = now
			e.holdRemaining = e.holdTicks
			e.resolved = false
			return EventRose
		}
	case StateUp:
		if e.holdRemaining > 0 {
			e.holdRemaining--
			if e.holdRemaining == 0 {
				// 保持時間満了。転倒開始より先に呼び出し側がスコア処理を行えるよう
				// イベントで通知してから Falling に入る
				e.BeginFall(OutcomeTimeout)
				return EventTimedOut
			}
		}
		// holdRemaining が装填されないまま Up に残るケースは Watchdog が回収する
	case StateFalling:
		e.animRemaining--
		if e.animRemaining <= 0 {
			e.ForceIdle()
			return EventFell
		}
	}
	return EventNone
}

// Progress は描画層向けの正規化アニメーション進捗（0〜1）を返します。
// 0 = 完全に引っ込んだ状態、1 = 完全に出た状態。
func (e *Entity) Progress() float32 {
	switch e.state {
	case StateRising:
		return 1 - float32(e.animRemaining)/float32(e.animTicks)
	case StateUp:
		return 1
	case StateFalling:
		return float32(e.animRemaining) / float32(e.animTicks)
	default:
		return 0
	}
}

// ForceIdle はタイマーとペイロードを破棄して Idle に戻すハードリセットです。
// セッション終了時とロジックエラー回復時のみ使用します。
func (e *Entity) ForceIdle() {
	e.state = StateIdle
	e.locked = false
	e.payload = nil
	e.resolved = false
	e.animRemaining = 0
	e.holdRemaining = 0
	e.upSince = 0
}
