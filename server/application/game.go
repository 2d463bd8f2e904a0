package application

import (
	"context"
	"log/slog"
)

// Phase はセッションのライフサイクル状態です。
// NotStarted → Countdown → Active → Ended と進み、
// Ended は明示的な Reset まで終端です。
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseCountdown
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Settings はセッション構築時に外部から与えられる設定です。
// セッションの生存期間中は不変として扱います。
type Settings struct {
	DurationSeconds  int
	Tier             SpeedTier
	EntityCount      int
	AnimMillis       int // 遷移アニメーション長（上下共通）
	HoldMillis       int // Up の保持時間
	CountdownSeconds int // 開始前カウントダウン。スケジューラは動かない
	RewardRatio      float64
	RewardItems      []string // 正解カテゴリの出題内容
	OtherItems       []string // それ以外のカテゴリの出題内容
}

// DefaultSettings は「偶数を叩く」デフォルトラウンドの設定を返します。
func DefaultSettings() Settings {
	return Settings{
		DurationSeconds:  30,
		Tier:             TierMedium,
		EntityCount:      9,
		AnimMillis:       400,
		HoldMillis:       1500,
		CountdownSeconds: 3,
		RewardRatio:      DefaultRewardRatio,
		RewardItems:      []string{"2", "4", "6", "8", "10"},
		OtherItems:       []string{"1", "3", "5", "7", "9"},
	}
}

// Game は1プレイセッションのオーケストレータです。
// 毎tick、時計・エンティティのタイマー・スケジューラ・Watchdogを
// この順に1つの論理タイムライン上で進めます。協調的な単一タイムラインなので
// コア内部に排他制御は存在せず、キャンセルは「tickを止める」ことと等価です。
type Game struct {
	settings Settings
	cb       *Callbacks
	rng      RandomSource

	phase     Phase
	countdown int
	clock     *Clock
	entities  []*Entity
	scheduler *Scheduler
	watchdog  *Watchdog
	resolver  *HitResolver
}

func NewGame(settings Settings, cb Callbacks, rng RandomSource) *Game {
	if rng == nil {
		rng = NewRandomSource()
	}
	g := &Game{settings: settings, cb: &cb, rng: rng}
	g.build()
	return g
}

// build はセッションとエンティティ集合を新規に構築します。
// spawnsIssued や目標出現数が前のセッションから持ち越されることはありません。
func (g *Game) build() {
	animTicks := MillisToTicks(g.settings.AnimMillis)
	holdTicks := MillisToTicks(g.settings.HoldMillis)
	durationTicks := SecondsToTicks(g.settings.DurationSeconds)

	g.clock = NewClock(durationTicks)
	g.entities = make([]*Entity, g.settings.EntityCount)
	for i := range g.entities {
		g.entities[i] = NewEntity(i, animTicks, holdTicks)
	}
	picker := NewPayloadPicker(g.settings.RewardItems, g.settings.OtherItems, g.settings.RewardRatio, g.rng)
	g.scheduler = NewScheduler(g.settings.Tier, durationTicks, picker, g.rng)
	g.watchdog = NewWatchdog(holdTicks)
	g.resolver = NewHitResolver(g.entities, g.cb)
	g.countdown = SecondsToTicks(g.settings.CountdownSeconds)
	g.phase = PhaseNotStarted
}

func (g *Game) Phase() Phase          { return g.phase }
func (g *Game) SpawnsIssued() int     { return g.scheduler.Issued() }
func (g *Game) TargetSpawnCount() int { return g.scheduler.Target() }
func (g *Game) RemainingTicks() int   { return g.clock.Remaining() }

// Start はカウントダウンを開始します。NotStarted 以外では何もしません。
func (g *Game) Start(ctx context.Context) {
	if g.phase != PhaseNotStarted {
		slog.WarnContext(ctx, "game: start ignored", "phase", g.phase.String())
		return
	}
	if g.countdown <= 0 {
		g.phase = PhaseActive
		slog.InfoContext(ctx, "game: round active",
			"tier", g.settings.Tier.String(), "target", g.scheduler.Target())
		return
	}
	g.phase = PhaseCountdown
	slog.InfoContext(ctx, "game: countdown", "ticks", g.countdown)
}

// Tick はセッションを1tick進めます。Active 以外ではタイマーは一切進みません。
func (g *Game) Tick(ctx context.Context) {
	switch g.phase {
	case PhaseCountdown:
		g.countdown--
		if g.countdown <= 0 {
			g.phase = PhaseActive
			slog.InfoContext(ctx, "game: round active",
				"tier", g.settings.Tier.String(), "target", g.scheduler.Target())
		}
	case PhaseActive:
		g.clock.Tick()
		now := g.clock.Now()

		// エンティティごとのアニメーション・保持タイマー
		for _, e := range g.entities {
			switch e.Tick(now) {
			case EventTimedOut:
				g.cb.resolved(OutcomeTimeout, *e.Payload())
			}
		}

		// 出現スケジューラ
		if e := g.scheduler.Tick(now, g.clock, g.entities); e != nil {
			g.cb.rise(e.ID)
		}

		// 固着回収
		for _, e := range g.watchdog.Tick(now, g.entities) {
			g.cb.resolved(OutcomeTimeout, *e.Payload())
		}

		if g.clock.Expired() {
			g.end(ctx)
		}
	}
}

// ResolveHit は外部入力層からのヒットを解決します。
// セッションが Active でなければ何もせず HitNoTarget を返します。
func (g *Game) ResolveHit(entityID int) HitResult {
	if g.phase != PhaseActive {
		return HitNoTarget
	}
	return g.resolver.Resolve(entityID)
}

// end はセッションの正常終了です。全エンティティを状態に関係なく
// ハードリセットし、最終結果を一度だけ通知します。
func (g *Game) end(ctx context.Context) {
	g.phase = PhaseEnded
	for _, e := range g.entities {
		e.ForceIdle()
	}
	slog.InfoContext(ctx, "game: round ended",
		"issued", g.scheduler.Issued(),
		"target", g.scheduler.Target(),
		"skipped", g.scheduler.Skipped())
	g.cb.sessionEnd(g.scheduler.Issued())
}

// Reset はセッションとエンティティ集合を作り直します。
// 直前のセッションの結果に関係なく、spawnsIssued は 0、全エンティティは Idle になります。
func (g *Game) Reset() {
	g.build()
}

// EntitySnapshot は描画層へ渡す1エンティティ分の状態です。
// 補間・描画はすべて受け取り側の責務で、コアは進捗値しか計算しません。
type EntitySnapshot struct {
	ID       int
	State    EntityState
	Progress float32
	Content  string
	Rewarded bool
}

// Snapshot はセッション全体の現在状態です。毎tick描画層へ渡します。
type Snapshot struct {
	Phase          Phase
	CountdownTicks int
	RemainingTicks int
	SpawnsIssued   int
	TargetSpawns   int
	Entities       []EntitySnapshot
}

func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:          g.phase,
		CountdownTicks: g.countdown,
		RemainingTicks: g.clock.Remaining(),
		SpawnsIssued:   g.scheduler.Issued(),
		TargetSpawns:   g.scheduler.Target(),
		Entities:       make([]EntitySnapshot, len(g.entities)),
	}
	for i, e := range g.entities {
		es := EntitySnapshot{
			ID:       e.ID,
			State:    e.State(),
			Progress: e.Progress(),
		}
		if p := e.Payload(); p != nil {
			es.Content = p.Content
			es.Rewarded = p.Rewarded
		}
		snap.Entities[i] = es
	}
	return snap
}
