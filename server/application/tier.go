package application

import "fmt"

// SpeedTier は難易度設定です。目標出現数の範囲と最小出現間隔を決めます。
type SpeedTier uint8

const (
	TierSlow SpeedTier = iota
	TierMedium
	TierFast
)

func (t SpeedTier) String() string {
	switch t {
	case TierSlow:
		return "slow"
	case TierMedium:
		return "medium"
	case TierFast:
		return "fast"
	default:
		return "unknown"
	}
}

// ParseSpeedTier は設定ファイルの文字列表現をパースします。
func ParseSpeedTier(s string) (SpeedTier, error) {
	switch s {
	case "slow":
		return TierSlow, nil
	case "medium":
		return TierMedium, nil
	case "fast":
		return TierFast, nil
	default:
		return TierSlow, fmt.Errorf("unknown speed tier: %q", s)
	}
}

// tierParam はティアごとのチューニング値です。
type tierParam struct {
	minCount      int     // 目標出現数の下限
	maxCount      int     // 目標出現数の上限
	minIntervalMs int     // 出現間隔の下限（視覚的に成立する密度の限界）
	jitterFrac    float64 // 出現間隔に加える対称ジッターの割合
	lowBiased     bool    // 出現数の抽選を範囲の下限寄りに偏らせるか
}

var tierParams = map[SpeedTier]tierParam{
	TierSlow:   {minCount: 8, maxCount: 10, minIntervalMs: 1800, jitterFrac: 0.15, lowBiased: true},
	TierMedium: {minCount: 11, maxCount: 13, minIntervalMs: 1500, jitterFrac: 0.20, lowBiased: true},
	TierFast:   {minCount: 14, maxCount: 16, minIntervalMs: 1200, jitterFrac: 0.25, lowBiased: false},
}

// resolveTargetCount はティアの範囲から目標出現数を1回だけ抽選します。
// lowBiased なティアは2回抽選の小さい方を採用して下限寄りに偏らせます。
func resolveTargetCount(p tierParam, rng RandomSource) int {
	span := p.maxCount - p.minCount + 1
	if p.lowBiased {
		a, b := rng.IntN(span), rng.IntN(span)
		if b < a {
			a = b
		}
		return p.minCount + a
	}
	return p.minCount + rng.IntN(span)
}
