package application

import "testing"

// upEntity はヒット解決テスト用に Up 状態まで進めたエンティティを返します。
func upEntity(t *testing.T, id int, payload Payload) *Entity {
	t.Helper()
	e := NewEntity(id, 1, 100)
	e.BeginRise(payload)
	if ev := e.Tick(1); ev != EventRose {
		t.Fatalf("setup: event = %d, want EventRose", ev)
	}
	return e
}

func TestHitResolver_CorrectHit(t *testing.T) {
	e := upEntity(t, 0, Payload{Content: "4", Rewarded: true})

	var gotOutcome Outcome
	var stateAtResolve EntityState
	resolved := 0
	correct := 0
	cb := &Callbacks{
		OnResolved: func(outcome Outcome, payload Payload) {
			resolved++
			gotOutcome = outcome
			stateAtResolve = e.State()
		},
		OnCorrectHit: func(entityID int) { correct++ },
	}
	r := NewHitResolver([]*Entity{e}, cb)

	if got := r.Resolve(0); got != HitCorrect {
		t.Fatalf("result = %s, want correct", got)
	}
	if resolved != 1 || correct != 1 {
		t.Errorf("resolved=%d correct=%d, want 1/1", resolved, correct)
	}
	if gotOutcome != OutcomeCorrect {
		t.Errorf("outcome = %s, want correct", gotOutcome)
	}
	// スコア通知は転倒開始より前
	if stateAtResolve != StateUp {
		t.Errorf("state at OnResolved = %s, want up", stateAtResolve)
	}
	if e.State() != StateFalling {
		t.Errorf("state after resolve = %s, want falling", e.State())
	}
}

func TestHitResolver_IncorrectHit(t *testing.T) {
	e := upEntity(t, 0, Payload{Content: "3", Rewarded: false})

	incorrect := 0
	cb := &Callbacks{
		OnIncorrectHit: func(entityID int) { incorrect++ },
	}
	r := NewHitResolver([]*Entity{e}, cb)

	if got := r.Resolve(0); got != HitIncorrect {
		t.Fatalf("result = %s, want incorrect", got)
	}
	if incorrect != 1 {
		t.Errorf("incorrect callbacks = %d, want 1", incorrect)
	}
}

func TestHitResolver_DoubleHitResolvesOnce(t *testing.T) {
	e := upEntity(t, 0, Payload{Content: "4", Rewarded: true})

	resolved := 0
	cb := &Callbacks{
		OnResolved: func(Outcome, Payload) { resolved++ },
	}
	r := NewHitResolver([]*Entity{e}, cb)

	if got := r.Resolve(0); got != HitCorrect {
		t.Fatalf("first result = %s, want correct", got)
	}
	// 同一tick内の2つ目のヒット
	if got := r.Resolve(0); got != HitNoTarget {
		t.Errorf("second result = %s, want no_target", got)
	}
	if resolved != 1 {
		t.Errorf("resolved callbacks = %d, want 1", resolved)
	}
}

func TestHitResolver_LateHitAfterFall(t *testing.T) {
	e := upEntity(t, 0, Payload{Content: "4", Rewarded: true})
	r := NewHitResolver([]*Entity{e}, &Callbacks{})

	// 保持時間満了（Watchdog回収と同じ経路）の直後に届いた遅延ヒット
	e.BeginFall(OutcomeTimeout)

	if got := r.Resolve(0); got != HitNoTarget {
		t.Errorf("result = %s, want no_target for falling entity", got)
	}
}

func TestHitResolver_UnknownEntity(t *testing.T) {
	e := upEntity(t, 0, testPayload())
	r := NewHitResolver([]*Entity{e}, &Callbacks{})

	if got := r.Resolve(-1); got != HitNoTarget {
		t.Errorf("result for -1 = %s, want no_target", got)
	}
	if got := r.Resolve(5); got != HitNoTarget {
		t.Errorf("result for out-of-range = %s, want no_target", got)
	}
	if e.State() != StateUp {
		t.Errorf("state = %s, unknown hit must not mutate entities", e.State())
	}
}

func TestHitResolver_IdleEntity(t *testing.T) {
	e := NewEntity(0, 1, 100)
	r := NewHitResolver([]*Entity{e}, &Callbacks{})

	if got := r.Resolve(0); got != HitNoTarget {
		t.Errorf("result = %s, want no_target for idle entity", got)
	}
}
