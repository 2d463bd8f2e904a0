package application

import "math/rand/v2"

// RandomSource はスケジューラとペイロード抽選が使う乱数源の抽象です。
// テストでは固定シードの実装を注入して決定的に再現できます。
type RandomSource interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n)
}

type defaultSource struct{}

func (defaultSource) Float64() float64 { return rand.Float64() }
func (defaultSource) IntN(n int) int   { return rand.IntN(n) }

// NewRandomSource はプロセス共有の乱数源を返します。
func NewRandomSource() RandomSource { return defaultSource{} }

type seededSource struct {
	r *rand.Rand
}

// NewSeededSource は再現可能な乱数源を生成します（テスト・リプレイ用）。
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 { return s.r.Float64() }
func (s *seededSource) IntN(n int) int   { return s.r.IntN(n) }
