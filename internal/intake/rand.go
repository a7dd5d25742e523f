package intake

import "math/rand/v2"

// Rand 可注入的伪随机源；*rand.Rand 满足该接口
type Rand interface {
	IntN(n int) int
}

// NewRand 基于 PCG 构造可复现的随机源
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
