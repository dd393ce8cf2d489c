package strategy

import (
	"testing"

	"FusionTrader/internal/model"
)

func TestInterpret_StrongBuy(t *testing.T) {
	sig, err := Interpret([]float64{0.05, 0.9, 0.05})
	if err != nil {
		t.Fatal(err)
	}
	if sig.Action != model.ActionBuy {
		t.Fatalf("expected BUY, got %s", sig.Action)
	}
	if sig.Tier.Label != "strong" || !sig.Tier.Tradable {
		t.Errorf("expected tradable strong tier, got %+v", sig.Tier)
	}
	if sig.WarningMsg != "" {
		t.Errorf("unexpected warning: %s", sig.WarningMsg)
	}
}

func TestInterpret_TierBoundaries(t *testing.T) {
	cases := []struct {
		probs []float64
		label string
	}{
		{[]float64{0.8, 0.1, 0.1}, "strong"},
		{[]float64{0.1, 0.1, 0.8}, "strong"},
		{[]float64{0.6, 0.3, 0.1}, "firm"},
		{[]float64{0.45, 0.35, 0.2}, "moderate"},
		{[]float64{0.4, 0.3, 0.3}, "weak"},
	}
	for _, c := range cases {
		sig, err := Interpret(c.probs)
		if err != nil {
			t.Fatal(err)
		}
		if sig.Tier.Label != c.label {
			t.Errorf("%v: expected %s, got %s", c.probs, c.label, sig.Tier.Label)
		}
	}
	if mapTier(0.2).Tradable {
		t.Error("weak tier must not be tradable")
	}
}

func TestInterpret_NearTie(t *testing.T) {
	sig, err := Interpret([]float64{0.2, 0.41, 0.39})
	if err != nil {
		t.Fatal(err)
	}
	if sig.Action != model.ActionBuy {
		t.Fatalf("expected BUY, got %s", sig.Action)
	}
	if sig.WarningMsg == "" {
		t.Error("expected near-tie warning")
	}
}

func TestInterpret_CopiesProbabilities(t *testing.T) {
	probs := []float64{0.7, 0.2, 0.1}
	sig, _ := Interpret(probs)
	probs[0] = 0
	if sig.Probabilities[0] != 0.7 {
		t.Error("signal must not alias the input slice")
	}
}

func TestInterpret_WrongLength(t *testing.T) {
	if _, err := Interpret([]float64{1}); err == nil {
		t.Error("expected error for wrong length")
	}
}

func TestEvaluate_OverboughtBuy(t *testing.T) {
	sig, err := Evaluate("SPX", []float64{0.1, 0.8, 0.1}, 6500, 90)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Symbol != "SPX" || sig.Price != 6500 || sig.RSI != 90 {
		t.Errorf("context not carried: %+v", sig)
	}
	if sig.WarningMsg == "" {
		t.Error("expected overbought warning")
	}
}

func TestEvaluate_OversoldSell(t *testing.T) {
	sig, _ := Evaluate("SPX", []float64{0.1, 0.1, 0.8}, 4000, 10)
	if sig.WarningMsg == "" {
		t.Error("expected oversold warning")
	}
	calm, _ := Evaluate("SPX", []float64{0.1, 0.1, 0.8}, 4000, 50)
	if calm.WarningMsg != "" {
		t.Errorf("unexpected warning: %s", calm.WarningMsg)
	}
}
