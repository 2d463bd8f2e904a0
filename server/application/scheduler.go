package application

import "log/slog"

const (
	// spawnRetryTicks は空きエンティティがないときの再試行間隔です。
	spawnRetryTicks = 18 // 0.3秒 @60TPS

	// maxSpawnRetries は1つの出現枠に対する再試行回数の上限です。
	// 上限を超えた枠は諦めてスキップし、セッションは延長しません。
	maxSpawnRetries = 10
)

// Scheduler は出現枠を時間軸に割り付けるスケジューラです。
// セッション全体で目標出現数ちょうどの出現が起きるよう、
// 次の出現間隔を残り時間と残り予算から毎回再計算します。
// 初期の出現が遅延しても（全エンティティが塞がっていた等）、
// この再計算が合計出現数を目標に収束させます。
type Scheduler struct {
	target  int // 目標出現数（セッション開始時に1回だけ抽選）
	issued  int // 発行済み出現数。単調増加、target を超えない
	skipped int // 再試行上限で諦めた出現枠の数

	nextSpawnAt  int64   // 次の出現予定tick
	baseInterval int     // 再計算不能時のフォールバック間隔
	minInterval  int     // ティアごとの間隔下限
	jitterFrac   float64
	retries      int
	done         bool

	picker *PayloadPicker
	rng    RandomSource
}

func NewScheduler(tier SpeedTier, durationTicks int, picker *PayloadPicker, rng RandomSource) *Scheduler {
	p := tierParams[tier]
	return newScheduler(resolveTargetCount(p, rng), durationTicks, MillisToTicks(p.minIntervalMs), p.jitterFrac, picker, rng)
}

func newScheduler(target, durationTicks, minIntervalTicks int, jitterFrac float64, picker *PayloadPicker, rng RandomSource) *Scheduler {
	base := durationTicks / target
	if base < minIntervalTicks {
		base = minIntervalTicks
	}
	return &Scheduler{
		target:       target,
		baseInterval: base,
		minInterval:  minIntervalTicks,
		jitterFrac:   jitterFrac,
		picker:       picker,
		rng:          rng,
	}
}

func (s *Scheduler) Target() int  { return s.target }
func (s *Scheduler) Issued() int  { return s.issued }
func (s *Scheduler) Skipped() int { return s.skipped }

// Done は出現予算を使い切ったかを返します。終端条件でありエラーではありません。
func (s *Scheduler) Done() bool { return s.done }

// Tick は予定時刻が来ていれば出現を1つ実行します。
// 出現したエンティティを返します（出現しなかったtickは nil）。
// 呼び出し側はセッションが Active のときだけ Tick を呼ぶ責務を持ちます。
func (s *Scheduler) Tick(now int64, clock *Clock, entities []*Entity) *Entity {
	if s.done || now < s.nextSpawnAt {
		return nil
	}
	if s.issued >= s.target {
		s.done = true
		return nil
	}

	candidates := make([]*Entity, 0, len(entities))
	for _, e := range entities {
		if e.AvailableForSpawn() {
			candidates = append(candidates, e)
		}
	}

	if len(candidates) == 0 {
		// 資源枯渇。予算は消費せず少し待って再試行する
		s.retries++
		if s.retries > maxSpawnRetries {
			slog.Warn("scheduler: no entity became available, skipping spawn slot",
				"retries", s.retries-1, "issued", s.issued, "target", s.target)
			s.skipped++
			s.retries = 0
			s.scheduleNext(now, clock)
			return nil
		}
		s.nextSpawnAt = now + spawnRetryTicks
		return nil
	}
	s.retries = 0

	e := candidates[s.rng.IntN(len(candidates))]
	// issued の加算は BeginRise より先。終端判定 issued >= target が
	// 実際に開始した出現数と常に整合するようにする
	s.issued++
	e.BeginRise(s.picker.Pick())
	slog.Debug("scheduler: spawn", "entityID", e.ID, "issued", s.issued, "target", s.target)

	if s.issued >= s.target {
		s.done = true
		return e
	}
	s.scheduleNext(now, clock)
	return e
}

// scheduleNext は次の出現予定を残り時間と残り予算から再計算します。
func (s *Scheduler) scheduleNext(now int64, clock *Clock) {
	remaining := clock.Remaining()
	remainingSpawns := s.target - s.issued

	interval := s.baseInterval
	if remainingSpawns > 0 && remaining > 0 {
		interval = remaining / remainingSpawns
	}

	// 対称ジッターを加えてから下限で床を取る
	jitter := (s.rng.Float64()*2 - 1) * s.jitterFrac
	interval = int(float64(interval) * (1 + jitter))
	if interval < s.minInterval {
		interval = s.minInterval
	}
	// 最後の枠がセッション終了後にずれ込まないようクランプする
	if remaining > 1 && interval > remaining-1 {
		interval = remaining - 1
	}
	if interval < 1 {
		interval = 1
	}
	s.nextSpawnAt = now + int64(interval)
}
