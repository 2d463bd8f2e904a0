package application

// Callbacks はコアが外部協調層へ通知するためのフックです。
// OnResolved / OnSessionEnd はスコア層向け、OnRise / OnCorrectHit /
// OnIncorrectHit は音・振動などのフィードバック層向けの fire-and-forget です。
// いずれも nil のままで構いません。コアの状態はコールバックの結果に依存しません。
type Callbacks struct {
	OnResolved   func(outcome Outcome, payload Payload)
	OnSessionEnd func(spawnsIssued int)

	OnRise         func(entityID int)
	OnCorrectHit   func(entityID int)
	OnIncorrectHit func(entityID int)
}

func (c *Callbacks) resolved(outcome Outcome, payload Payload) {
	if c != nil && c.OnResolved != nil {
		c.OnResolved(outcome, payload)
	}
}

func (c *Callbacks) sessionEnd(spawnsIssued int) {
	if c != nil && c.OnSessionEnd != nil {
		c.OnSessionEnd(spawnsIssued)
	}
}

func (c *Callbacks) rise(entityID int) {
	if c != nil && c.OnRise != nil {
		c.OnRise(entityID)
	}
}

func (c *Callbacks) correctHit(entityID int) {
	if c != nil && c.OnCorrectHit != nil {
		c.OnCorrectHit(entityID)
	}
}

func (c *Callbacks) incorrectHit(entityID int) {
	if c != nil && c.OnIncorrectHit != nil {
		c.OnIncorrectHit(entityID)
	}
}
