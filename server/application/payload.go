package application

// DefaultRewardRatio は報酬ペイロードが選ばれる確率です。
// ゲームバランス調整用の定数で、ゲーム状態からは導出されません。
const DefaultRewardRatio = 0.70

// Payload は出現中のエンティティに割り当てられる出題内容です。
// BeginRise の瞬間に割り当てられ、Idle に戻るときに破棄されます。
type Payload struct {
	Content  string
	Rewarded bool
}

// PayloadPicker は報酬カテゴリとそれ以外のカテゴリから出題内容を抽選します。
type PayloadPicker struct {
	rewardItems []string
	otherItems  []string
	rewardRatio float64
	rng         RandomSource
}

func NewPayloadPicker(rewardItems, otherItems []string, rewardRatio float64, rng RandomSource) *PayloadPicker {
	return &PayloadPicker{
		rewardItems: rewardItems,
		otherItems:  otherItems,
		rewardRatio: rewardRatio,
		rng:         rng,
	}
}

// Pick は rewardRatio の確率で報酬カテゴリから、残りはその他カテゴリから
// 一様に1件選びます。その他カテゴリが空の場合は常に報酬側から選びます。
func (p *PayloadPicker) Pick() Payload {
	if len(p.otherItems) == 0 || p.rng.Float64() < p.rewardRatio {
		return Payload{
			Content:  p.rewardItems[p.rng.IntN(len(p.rewardItems))],
			Rewarded: true,
		}
	}
	return Payload{
		Content:  p.otherItems[p.rng.IntN(len(p.otherItems))],
		Rewarded: false,
	}
}
