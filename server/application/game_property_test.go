package application

import (
	"context"
	"testing"

	"pgregory.net/rapid"
)

// セッション構成をランダムに振っても崩れてはいけない不変条件:
//   - 発行済み出現数は目標を超えない
//   - locked は遷移中（Rising/Falling）と同値
//   - payload は非Idleのときに限り非nil
//   - セッション終了後は全エンティティが Idle
func TestGame_Invariants_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Settings{
			DurationSeconds:  rapid.IntRange(2, 45).Draw(t, "duration"),
			Tier:             SpeedTier(rapid.IntRange(0, 2).Draw(t, "tier")),
			EntityCount:      rapid.IntRange(1, 12).Draw(t, "entities"),
			AnimMillis:       rapid.IntRange(50, 800).Draw(t, "anim"),
			HoldMillis:       rapid.IntRange(300, 3000).Draw(t, "hold"),
			CountdownSeconds: 0,
			RewardRatio:      rapid.Float64Range(0, 1).Draw(t, "ratio"),
			RewardItems:      []string{"2", "4", "6"},
			OtherItems:       []string{"1", "3", "5"},
		}
		rng := NewSeededSource(rapid.Uint64().Draw(t, "seed"))

		ctx := context.Background()
		g := NewGame(s, Callbacks{}, rng)
		g.Start(ctx)

		for i := 0; i < SecondsToTicks(s.DurationSeconds)+10; i++ {
			g.Tick(ctx)

			if g.SpawnsIssued() > g.TargetSpawnCount() {
				t.Fatalf("issued %d exceeds target %d", g.SpawnsIssued(), g.TargetSpawnCount())
			}
			for _, e := range g.entities {
				transitioning := e.State() == StateRising || e.State() == StateFalling
				if e.Locked() != transitioning {
					t.Fatalf("entity %d: locked=%v in state %s", e.ID, e.Locked(), e.State())
				}
				if (e.Payload() != nil) != (e.State() != StateIdle) {
					t.Fatalf("entity %d: payload presence mismatch in state %s", e.ID, e.State())
				}
			}
		}

		if g.Phase() != PhaseEnded {
			t.Fatalf("phase = %s, want ended", g.Phase())
		}
		for _, e := range g.entities {
			if e.State() != StateIdle {
				t.Fatalf("entity %d: state %s after end", e.ID, e.State())
			}
		}
	})
}
