package application

import "log/slog"

const (
	// watchdogIntervalTicks はWatchdogの巡回間隔です。
	watchdogIntervalTicks = 60 // 1秒 @60TPS

	// watchdogGraceTicks は保持時間に加える猶予です。
	// これを超えて Up に残っているエンティティは固着とみなします。
	watchdogGraceTicks = 30 // 0.5秒 @60TPS
)

// Watchdog は固着したエンティティを強制転倒させる安全網です。
// 保持タイマーが装填されないまま Up に残ったエンティティ
// （スケジューリング競合で完了通知が失われたケース）を定期巡回で回収します。
// BeginFall は Up 以外では何もしないため、巡回の再発火は冪等です。
type Watchdog struct {
	holdTicks int
	countdown int
}

func NewWatchdog(holdTicks int) *Watchdog {
	return &Watchdog{
		holdTicks: holdTicks,
		countdown: watchdogIntervalTicks,
	}
}

// Tick は巡回間隔ごとに全エンティティを検査し、
// 保持時間+猶予を超えて Up のままのものを強制転倒させます。
// 強制転倒させたエンティティを返します（呼び出し側がスコア処理を行う）。
func (w *Watchdog) Tick(now int64, entities []*Entity) []*Entity {
	w.countdown--
	if w.countdown > 0 {
		return nil
	}
	w.countdown = watchdogIntervalTicks

	var forced []*Entity
	for _, e := range entities {
		if e.State() != StateUp {
			continue
		}
		if now-e.UpSince() <= int64(w.holdTicks+watchdogGraceTicks) {
			continue
		}
		slog.Warn("watchdog: forcing stuck entity down",
			"entityID", e.ID, "upTicks", now-e.UpSince())
		if e.BeginFall(OutcomeTimeout) {
			forced = append(forced, e)
		}
	}
	return forced
}
