package order

import (
	"fmt"
	"math"
)

// Validate 检查订单价格/数量是否符合精度与最小名义。
// 量化已经在策略层完成，这里是下单前的最后一道校验。
func (c ContractSpec) Validate(price, qty float64) error {
	if price <= 0 {
		return fmt.Errorf("price %.8f must be > 0", price)
	}
	if c.TickSize > 0 && !isMultiple(price, c.TickSize) {
		return fmt.Errorf("price %.8f not aligned to tickSize %.8f", price, c.TickSize)
	}
	if c.StepSize > 0 && !isMultiple(qty, c.StepSize) {
		return fmt.Errorf("qty %.8f not aligned to stepSize %.8f", qty, c.StepSize)
	}
	if c.MinQty > 0 && qty < c.MinQty {
		return fmt.Errorf("qty %.8f < minQty %.8f", qty, c.MinQty)
	}
	if c.MinNotional > 0 && price*qty < c.MinNotional {
		return fmt.Errorf("notional %.8f < minNotional %.8f", price*qty, c.MinNotional)
	}
	return nil
}

// MeetsMinimums 返回该方向是否满足交易所最小数量/最小名义要求。
// 一侧不满足只跳过该侧，不影响另一侧。
func (c ContractSpec) MeetsMinimums(price, qty float64) bool {
	return qty >= c.MinQty && price*qty >= c.MinNotional
}

func isMultiple(value, step float64) bool {
	if step <= 0 {
		return true
	}
	ratio := value / step
	return math.Abs(ratio-math.Round(ratio)) <= 1e-8
}
