package order

import "testing"

func TestValidate(t *testing.T) {
	spec := ContractSpec{TickSize: 0.01, StepSize: 0.001, MinQty: 0.01, MinNotional: 10}

	if err := spec.Validate(100.00, 0.15); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}
	if err := spec.Validate(100.004, 0.15); err == nil {
		t.Fatal("misaligned price accepted")
	}
	if err := spec.Validate(100.00, 0.1505); err == nil {
		t.Fatal("misaligned qty accepted")
	}
	if err := spec.Validate(100.00, 0.005); err == nil {
		t.Fatal("qty below minQty accepted")
	}
	if err := spec.Validate(100.00, 0.05); err == nil {
		t.Fatal("notional below minNotional accepted")
	}
	if err := spec.Validate(-1, 0.15); err == nil {
		t.Fatal("negative price accepted")
	}
}

func TestMeetsMinimums(t *testing.T) {
	spec := ContractSpec{MinQty: 0.01, MinNotional: 10}
	if !spec.MeetsMinimums(100, 0.15) {
		t.Fatal("expected eligible")
	}
	if spec.MeetsMinimums(100, 0.005) {
		t.Fatal("minQty violation passed")
	}
	if spec.MeetsMinimums(100, 0.05) {
		t.Fatal("minNotional violation passed")
	}
}
