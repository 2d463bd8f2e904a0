package application

// TickRate はゲームループの駆動レートです。
const TickRate = 60 // 60TPS

// MillisToTicks はミリ秒をtick数に変換します（最低1tick）。
func MillisToTicks(ms int) int {
	t := ms * TickRate / 1000
	if t < 1 {
		t = 1
	}
	return t
}

// SecondsToTicks は秒をtick数に変換します。
func SecondsToTicks(sec int) int {
	return sec * TickRate
}

// Clock はセッションの単一タイムラインを表します。
// now は単調増加するtickカウンタ、remaining はセッション残り時間です。
// コアはウォールクロックを一切参照せず、すべてこのtickで進行します。
type Clock struct {
	now       int64
	remaining int
}

func NewClock(durationTicks int) *Clock {
	return &Clock{remaining: durationTicks}
}

// Tick は時計を1tick進めます。
func (c *Clock) Tick() {
	c.now++
	if c.remaining > 0 {
		c.remaining--
	}
}

// Now は累計tickを返します。エンティティの upSince などの基準になります。
func (c *Clock) Now() int64 { return c.now }

// Remaining はセッション終了までの残りtickを返します。
func (c *Clock) Remaining() int { return c.remaining }

// Expired はセッション時間を使い切ったかを返します。
func (c *Clock) Expired() bool { return c.remaining <= 0 }
