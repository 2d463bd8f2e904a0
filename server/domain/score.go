package domain

import "mogura/server/application"

const (
	correctPoints    = 100 // 正解1回の基礎点
	streakBonus      = 10  // 連続正解1段ごとの加点
	incorrectPenalty = 50
)

// ScoreBoard は1ラウンド分のスコアと連続正解数を集計します。
// 採点はコアの責務ではないため、コアの OnResolved コールバックから
// ここに反映されます。
type ScoreBoard struct {
	score      int32
	streak     uint16
	bestStreak uint16

	correct   uint16
	incorrect uint16
	timeouts  uint16
}

// Apply は1件の解決結果をスコアに反映します。
func (b *ScoreBoard) Apply(outcome application.Outcome) {
	switch outcome {
	case application.OutcomeCorrect:
		b.correct++
		b.streak++
		if b.streak > b.bestStreak {
			b.bestStreak = b.streak
		}
		b.score += correctPoints + streakBonus*int32(b.streak-1)
	case application.OutcomeIncorrect:
		b.incorrect++
		b.streak = 0
		b.score -= incorrectPenalty
		if b.score < 0 {
			b.score = 0
		}
	case application.OutcomeTimeout:
		b.timeouts++
		b.streak = 0
	}
}

func (b *ScoreBoard) Score() int32       { return b.score }
func (b *ScoreBoard) Streak() uint16     { return b.streak }
func (b *ScoreBoard) BestStreak() uint16 { return b.bestStreak }

// Reset はラウンド再構築時に集計を初期化します。
func (b *ScoreBoard) Reset() {
	*b = ScoreBoard{}
}

// Result はラウンド終了時のワイヤ表現を組み立てます。
func (b *ScoreBoard) Result(spawnsIssued int) *ResultPayload {
	return &ResultPayload{
		SpawnsIssued: uint8(spawnsIssued),
		Correct:      b.correct,
		Incorrect:    b.incorrect,
		Timeouts:     b.timeouts,
		Score:        b.score,
		BestStreak:   b.bestStreak,
	}
}
