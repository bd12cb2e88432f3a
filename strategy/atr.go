package strategy

import (
	"fmt"
	"math"
)

// ATR 维护 Wilder 平滑的平均真实波幅。
// prevClose 只在 bar 闭合时推进，盘中更新只细化当前 bar 的波幅，
// 不会重置基准。
type ATR struct {
	length int
	alpha  float64

	rma     float64
	hasRMA  bool
	prev    float64
	hasPrev bool
}

func NewATR(length int) (*ATR, error) {
	if length < 1 {
		return nil, fmt.Errorf("atr length must be >= 1, got %d", length)
	}
	return &ATR{length: length, alpha: 1.0 / float64(length)}, nil
}

// Update 输入一根 bar，返回平滑值与本根的真实波幅。
// 首个样本直接用真实波幅初始化平滑值，之后按
// smoothed = (1-α)·smoothed + α·tr 递推。
func (a *ATR) Update(open, high, low, close float64, closed bool) (rma, tr float64) {
	tr = a.trueRange(high, low)
	if !a.hasRMA {
		a.rma = tr
		a.hasRMA = true
	} else {
		a.rma = (1-a.alpha)*a.rma + a.alpha*tr
	}
	if closed {
		a.prev = close
		a.hasPrev = true
	}
	return a.rma, tr
}

func (a *ATR) trueRange(high, low float64) float64 {
	if !a.hasPrev {
		return high - low
	}
	return math.Max(high-low, math.Max(math.Abs(high-a.prev), math.Abs(low-a.prev)))
}

// Value 返回当前平滑值；尚无样本时第二个返回值为 false。
func (a *ATR) Value() (float64, bool) {
	return a.rma, a.hasRMA
}

// Length 返回配置的平滑长度。
func (a *ATR) Length() int { return a.length }
