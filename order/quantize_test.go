package order

import (
	"math"
	"testing"
)

func TestFloorCeilToIncrement(t *testing.T) {
	cases := []struct {
		name    string
		v, step float64
		floor   float64
		ceil    float64
	}{
		{"tick 0.01", 100.004, 0.01, 100.00, 100.01},
		{"already aligned", 100.00, 0.01, 100.00, 100.00},
		{"step 0.001", 1.2349, 0.001, 1.234, 1.235},
		// 0.1+0.2 的浮点伪差：decimal 保留真实值，floor 回 0.3，
		// ceil 则必须进到 0.4
		{"float artifact", 0.30000000000000004, 0.1, 0.3, 0.4},
		{"zero step passthrough", 123.456, 0, 123.456, 123.456},
	}
	for _, tc := range cases {
		if got := FloorToIncrement(tc.v, tc.step); math.Abs(got-tc.floor) > 1e-12 {
			t.Errorf("%s: floor(%v, %v) = %v, want %v", tc.name, tc.v, tc.step, got, tc.floor)
		}
		if got := CeilToIncrement(tc.v, tc.step); math.Abs(got-tc.ceil) > 1e-12 {
			t.Errorf("%s: ceil(%v, %v) = %v, want %v", tc.name, tc.v, tc.step, got, tc.ceil)
		}
	}
}

func TestContractSpecQuantize(t *testing.T) {
	spec := ContractSpec{TickSize: 0.5, StepSize: 0.001}
	if got := spec.QuantizePriceFloor(100.7); got != 100.5 {
		t.Fatalf("bid floor: got %v", got)
	}
	if got := spec.QuantizePriceCeil(100.7); got != 101.0 {
		t.Fatalf("ask ceil: got %v", got)
	}
	if got := spec.QuantizeQty(0.12399); got != 0.123 {
		t.Fatalf("qty floor: got %v", got)
	}
}

func TestPrecisionAndFormat(t *testing.T) {
	spec := ContractSpec{TickSize: 0.01, StepSize: 0.001}
	if p := spec.PricePrecision(); p != 2 {
		t.Fatalf("price precision: got %d", p)
	}
	if p := spec.QtyPrecision(); p != 3 {
		t.Fatalf("qty precision: got %d", p)
	}
	if s := spec.FormatPrice(100.5); s != "100.50" {
		t.Fatalf("format price: got %q", s)
	}
	if s := spec.FormatQty(1.2); s != "1.200" {
		t.Fatalf("format qty: got %q", s)
	}

	whole := ContractSpec{TickSize: 1, StepSize: 1}
	if p := whole.PricePrecision(); p != 0 {
		t.Fatalf("integer tick precision: got %d", p)
	}
}
