package application

import (
	"context"
	"testing"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.CountdownSeconds = 0
	return s
}

// runToEnd はセッションを終了までtickで進めます。
func runToEnd(t *testing.T, g *Game) int {
	t.Helper()
	ctx := context.Background()
	ticks := 0
	limit := SecondsToTicks(g.settings.DurationSeconds) + SecondsToTicks(g.settings.CountdownSeconds) + 10
	for g.Phase() != PhaseEnded {
		g.Tick(ctx)
		ticks++
		if ticks > limit {
			t.Fatalf("session did not end within %d ticks (phase %s)", limit, g.Phase())
		}
	}
	return ticks
}

func TestGame_CountdownHoldsTimers(t *testing.T) {
	ctx := context.Background()
	s := testSettings()
	s.CountdownSeconds = 1
	g := NewGame(s, Callbacks{}, NewSeededSource(20))

	g.Start(ctx)
	if g.Phase() != PhaseCountdown {
		t.Fatalf("phase = %s, want countdown", g.Phase())
	}

	duration := SecondsToTicks(s.DurationSeconds)
	for i := 0; i < SecondsToTicks(1)-1; i++ {
		g.Tick(ctx)
	}
	if g.Phase() != PhaseCountdown {
		t.Fatalf("phase = %s, want countdown until the last tick", g.Phase())
	}
	// カウントダウン中はセッション時計もスケジューラも進まない
	if g.RemainingTicks() != duration {
		t.Errorf("remaining = %d, want untouched %d", g.RemainingTicks(), duration)
	}
	if g.SpawnsIssued() != 0 {
		t.Errorf("issued = %d, want 0 during countdown", g.SpawnsIssued())
	}

	g.Tick(ctx)
	if g.Phase() != PhaseActive {
		t.Errorf("phase = %s, want active after countdown", g.Phase())
	}
}

func TestGame_MediumRoundRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	g := NewGame(testSettings(), Callbacks{}, NewSeededSource(21))
	g.Start(ctx)
	if g.Phase() != PhaseActive {
		t.Fatalf("phase = %s, want active with zero countdown", g.Phase())
	}

	duration := SecondsToTicks(30)
	for i := 0; i < duration; i++ {
		g.Tick(ctx)
		if g.SpawnsIssued() > g.TargetSpawnCount() {
			t.Fatalf("issued %d exceeds target %d", g.SpawnsIssued(), g.TargetSpawnCount())
		}
		for _, e := range g.entities {
			transitioning := e.State() == StateRising || e.State() == StateFalling
			if e.Locked() != transitioning {
				t.Fatalf("tick %d: entity %d locked=%v in state %s", i, e.ID, e.Locked(), e.State())
			}
			if (e.Payload() != nil) != (e.State() != StateIdle) {
				t.Fatalf("tick %d: entity %d payload/state mismatch (%s)", i, e.ID, e.State())
			}
		}
	}

	if g.Phase() != PhaseEnded {
		t.Fatalf("phase = %s, want ended after %d ticks", g.Phase(), duration)
	}
	// Medium ティアの目標出現数は 11〜13
	if g.SpawnsIssued() < 11 || g.SpawnsIssued() > 13 {
		t.Errorf("issued = %d, want in [11,13]", g.SpawnsIssued())
	}
	if g.SpawnsIssued() != g.TargetSpawnCount() {
		t.Errorf("issued = %d, want full target %d", g.SpawnsIssued(), g.TargetSpawnCount())
	}
	for _, e := range g.entities {
		if e.State() != StateIdle || e.Locked() {
			t.Errorf("entity %d: state=%s locked=%v after end", e.ID, e.State(), e.Locked())
		}
	}
}

func TestGame_SessionEndNotifiedOnce(t *testing.T) {
	ctx := context.Background()
	s := testSettings()
	s.DurationSeconds = 1
	ended := 0
	endedWith := -1
	g := NewGame(s, Callbacks{
		OnSessionEnd: func(spawnsIssued int) {
			ended++
			endedWith = spawnsIssued
		},
	}, NewSeededSource(22))
	g.Start(ctx)

	// セッション時間を超えてtickし続けても終了通知は一度きり
	for i := 0; i < SecondsToTicks(2); i++ {
		g.Tick(ctx)
	}

	if ended != 1 {
		t.Errorf("OnSessionEnd called %d times, want 1", ended)
	}
	if endedWith != g.SpawnsIssued() {
		t.Errorf("OnSessionEnd got %d, want issued %d", endedWith, g.SpawnsIssued())
	}
}

func TestGame_LateHitAfterForcedFall(t *testing.T) {
	ctx := context.Background()
	s := testSettings()
	s.DurationSeconds = 60
	g := NewGame(s, Callbacks{}, NewSeededSource(23))
	g.Start(ctx)

	// 最初のエンティティが Up になるまで進める
	var target *Entity
	for i := 0; i < SecondsToTicks(10) && target == nil; i++ {
		g.Tick(ctx)
		for _, e := range g.entities {
			if e.State() == StateUp {
				target = e
				break
			}
		}
	}
	if target == nil {
		t.Fatal("no entity reached up state")
	}

	// 保持タイマーが失われた固着を再現し、Watchdogに回収させる
	target.holdRemaining = 0
	resolved := 0
	g.cb.OnResolved = func(outcome Outcome, payload Payload) {
		if outcome == OutcomeTimeout {
			resolved++
		}
	}
	for i := 0; i < SecondsToTicks(5) && target.State() == StateUp; i++ {
		g.Tick(ctx)
	}
	if target.State() != StateFalling {
		t.Fatalf("state = %s, want falling after watchdog recovery", target.State())
	}
	if resolved == 0 {
		t.Error("watchdog recovery should report a timeout resolution")
	}

	// 転倒直後に届いた遅延ヒットは吸収される
	if got := g.ResolveHit(target.ID); got != HitNoTarget {
		t.Errorf("late hit = %s, want no_target", got)
	}
}

func TestGame_HitScoring(t *testing.T) {
	ctx := context.Background()
	s := testSettings()
	s.RewardRatio = 1.0 // 全ペイロードを報酬側にして決定的にする
	g := NewGame(s, Callbacks{}, NewSeededSource(24))
	g.Start(ctx)

	var target *Entity
	for i := 0; i < SecondsToTicks(10) && target == nil; i++ {
		g.Tick(ctx)
		for _, e := range g.entities {
			if e.Hittable() {
				target = e
				break
			}
		}
	}
	if target == nil {
		t.Fatal("no hittable entity appeared")
	}

	if got := g.ResolveHit(target.ID); got != HitCorrect {
		t.Errorf("hit = %s, want correct", got)
	}
	if got := g.ResolveHit(target.ID); got != HitNoTarget {
		t.Errorf("second hit = %s, want no_target", got)
	}
}

func TestGame_ResolveHitOutsideActive(t *testing.T) {
	ctx := context.Background()
	g := NewGame(testSettings(), Callbacks{}, NewSeededSource(25))

	if got := g.ResolveHit(0); got != HitNoTarget {
		t.Errorf("hit before start = %s, want no_target", got)
	}

	g.Start(ctx)
	runToEnd(t, g)

	if got := g.ResolveHit(0); got != HitNoTarget {
		t.Errorf("hit after end = %s, want no_target", got)
	}
}

func TestGame_ResetRebuildsSession(t *testing.T) {
	ctx := context.Background()
	g := NewGame(testSettings(), Callbacks{}, NewSeededSource(26))
	g.Start(ctx)
	runToEnd(t, g)

	if g.SpawnsIssued() == 0 {
		t.Fatal("setup: session issued no spawns")
	}

	g.Reset()
	if g.Phase() != PhaseNotStarted {
		t.Errorf("phase = %s, want not_started after reset", g.Phase())
	}
	if g.SpawnsIssued() != 0 {
		t.Errorf("issued = %d, want 0 after reset", g.SpawnsIssued())
	}
	for _, e := range g.entities {
		if e.State() != StateIdle || e.Locked() || e.Payload() != nil {
			t.Errorf("entity %d not fully reset", e.ID)
		}
	}

	// 冪等性: 連続 Reset も同じ初期状態
	g.Reset()
	if g.Phase() != PhaseNotStarted || g.SpawnsIssued() != 0 {
		t.Error("second reset should leave the same initial state")
	}

	// リセット後のセッションは再び完走できる
	g.Start(ctx)
	runToEnd(t, g)
	if g.SpawnsIssued() != g.TargetSpawnCount() {
		t.Errorf("issued = %d, want target %d after reset round", g.SpawnsIssued(), g.TargetSpawnCount())
	}
}

func TestGame_StartIgnoredOutsideNotStarted(t *testing.T) {
	ctx := context.Background()
	g := NewGame(testSettings(), Callbacks{}, NewSeededSource(27))
	g.Start(ctx)
	for i := 0; i < 10; i++ {
		g.Tick(ctx)
	}
	remaining := g.RemainingTicks()

	g.Start(ctx) // Active 中の再 Start は無視
	if g.Phase() != PhaseActive || g.RemainingTicks() != remaining {
		t.Error("start during active session must be a no-op")
	}
}

func TestGame_SnapshotMirrorsEntities(t *testing.T) {
	ctx := context.Background()
	g := NewGame(testSettings(), Callbacks{}, NewSeededSource(28))
	g.Start(ctx)
	for i := 0; i < SecondsToTicks(5); i++ {
		g.Tick(ctx)
	}

	snap := g.Snapshot()
	if snap.Phase != g.Phase() {
		t.Errorf("snapshot phase = %s, want %s", snap.Phase, g.Phase())
	}
	if len(snap.Entities) != len(g.entities) {
		t.Fatalf("snapshot has %d entities, want %d", len(snap.Entities), len(g.entities))
	}
	for i, es := range snap.Entities {
		e := g.entities[i]
		if es.State != e.State() || es.Progress != e.Progress() {
			t.Errorf("entity %d: snapshot state/progress mismatch", i)
		}
		if p := e.Payload(); p != nil && es.Content != p.Content {
			t.Errorf("entity %d: snapshot content = %q, want %q", i, es.Content, p.Content)
		}
	}
}
