// internal/sim/dynamics_test.go
package sim

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func TestEvalNumeric_StaticAndNil(t *testing.T) {
	rng := testRNG()

	if got := evalNumeric(42, nil, 10, rng); got != 42 {
		t.Fatalf("nil dynamics: got %g, want 42", got)
	}
	if got := evalNumeric(42, &Dynamics{Kind: Static}, 10, rng); got != 42 {
		t.Fatalf("static dynamics: got %g, want 42", got)
	}
}

func TestEvalNumeric_Clamp(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Clamp, Min: 10, Max: 20}

	cases := []struct{ in, want float64 }{
		{5, 10},
		{15, 15},
		{25, 20},
	}
	for _, c := range cases {
		if got := evalNumeric(c.in, d, 0, rng); got != c.want {
			t.Fatalf("clamp(%g): got %g, want %g", c.in, got, c.want)
		}
	}
}

func TestEvalNumeric_Sine(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Sine, Amplitude: 10, Offset: 50, Period: time.Second}

	// Quarter period: sin(pi/2) = 1.
	if got := evalNumeric(0, d, 0.25, rng); math.Abs(got-60) > 1e-9 {
		t.Fatalf("sine at t=0.25: got %g, want 60", got)
	}
	// Half period: sin(pi) = 0.
	if got := evalNumeric(0, d, 0.5, rng); math.Abs(got-50) > 1e-9 {
		t.Fatalf("sine at t=0.5: got %g, want 50", got)
	}
}

func TestEvalNumeric_SineDegeneratePeriod(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Sine, Amplitude: 10, Offset: 50, Period: 0}

	if got := evalNumeric(123, d, 99, rng); got != 50 {
		t.Fatalf("degenerate sine: got %g, want offset 50", got)
	}
}

func TestEvalNumeric_Ramp(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Ramp, Min: 0, Max: 100, Period: time.Second}

	if got := evalNumeric(0, d, 0.25, rng); math.Abs(got-25) > 1 {
		t.Fatalf("ramp at t=0.25: got %g, want ~25", got)
	}
	if got := evalNumeric(0, d, 0.75, rng); math.Abs(got-75) > 1 {
		t.Fatalf("ramp at t=0.75: got %g, want ~75", got)
	}
	// Sawtooth wraps.
	if got := evalNumeric(0, d, 1.25, rng); math.Abs(got-25) > 1 {
		t.Fatalf("ramp at t=1.25: got %g, want ~25", got)
	}
}

func TestEvalNumeric_RampDegeneratePeriod(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Ramp, Min: 7, Max: 100, Period: -time.Second}

	if got := evalNumeric(55, d, 3, rng); got != 7 {
		t.Fatalf("degenerate ramp: got %g, want min 7", got)
	}
}

func TestEvalNumeric_Step(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Step, Low: 1, High: 9, Period: time.Second}

	if got := evalNumeric(0, d, 0.2, rng); got != 1 {
		t.Fatalf("step first half: got %g, want 1", got)
	}
	if got := evalNumeric(0, d, 0.7, rng); got != 9 {
		t.Fatalf("step second half: got %g, want 9", got)
	}
	if got := evalNumeric(0, d, 1.2, rng); got != 1 {
		t.Fatalf("step wrapped: got %g, want 1", got)
	}
}

func TestEvalNumeric_StepDegeneratePeriod(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Step, Low: 1, High: 9, Period: 0}

	if got := evalNumeric(0, d, 5, rng); got != 1 {
		t.Fatalf("degenerate step: got %g, want low 1", got)
	}
}

func TestEvalNumeric_RandomWalkStaysInRange(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: RandomWalk, Min: 0, Max: 100, Step: 10}

	value := 50.0
	for i := 0; i < 1000; i++ {
		value = evalNumeric(value, d, float64(i), rng)
		if value < 0 || value > 100 {
			t.Fatalf("random walk escaped range: %g", value)
		}
	}
}

func TestEvalNumeric_NoiseStaysInRange(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Noise, Min: 20, Max: 30}

	for i := 0; i < 1000; i++ {
		got := evalNumeric(0, d, float64(i), rng)
		if got < 20 || got > 30 {
			t.Fatalf("noise escaped range: %g", got)
		}
	}
}

func TestEvalNumeric_Script(t *testing.T) {
	rng := testRNG()

	d, err := NewScript("t * 2 + 1")
	if err != nil {
		t.Fatalf("NewScript() err=%v", err)
	}
	if got := evalNumeric(0, d, 3, rng); got != 7 {
		t.Fatalf("script at t=3: got %g, want 7", got)
	}
}

func TestEvalNumeric_ScriptParseFailureFreezes(t *testing.T) {
	rng := testRNG()

	d, err := NewScript("t +* nonsense(")
	if err == nil {
		t.Fatal("expected compile error")
	}

	// The value must hold across any number of evaluations.
	for i := 0; i < 10; i++ {
		if got := evalNumeric(42, d, float64(i), rng); got != 42 {
			t.Fatalf("broken script moved the value: got %g, want 42", got)
		}
	}
}

func TestEvalNumeric_ScriptOptionalClamps(t *testing.T) {
	rng := testRNG()

	d, err := NewScript("t * 100")
	if err != nil {
		t.Fatalf("NewScript() err=%v", err)
	}
	d.HasMax = true
	d.Max = 150

	if got := evalNumeric(0, d, 1, rng); got != 100 {
		t.Fatalf("below max: got %g, want 100", got)
	}
	if got := evalNumeric(0, d, 5, rng); got != 150 {
		t.Fatalf("above max: got %g, want clamped 150", got)
	}

	d.HasMin = true
	d.Min = 50
	if got := evalNumeric(0, d, 0, rng); got != 50 {
		t.Fatalf("below min: got %g, want clamped 50", got)
	}
}

func TestEvalBit_Threshold(t *testing.T) {
	rng := testRNG()
	d := &Dynamics{Kind: Ramp, Min: 0, Max: 1, Period: time.Second}

	if evalBit(false, d, 0.25, rng) {
		t.Fatal("0.25 should threshold to false")
	}
	if !evalBit(false, d, 0.75, rng) {
		t.Fatal("0.75 should threshold to true")
	}
}

func TestEvalWord_Quantization(t *testing.T) {
	rng := testRNG()

	cases := []struct {
		d    *Dynamics
		want uint16
	}{
		{&Dynamics{Kind: Clamp, Min: -100, Max: -50}, 0},         // negative result clamps to 0
		{&Dynamics{Kind: Clamp, Min: 70000, Max: 80000}, 65535},  // overflow clamps to max
		{&Dynamics{Kind: Ramp, Min: 10.6, Max: 10.6, Period: time.Second}, 11}, // round to nearest
	}
	for i, c := range cases {
		if got := evalWord(100, c.d, 0.5, rng); got != c.want {
			t.Fatalf("case %d: got %d, want %d", i, got, c.want)
		}
	}
}

func TestEvalWord_RangeContainment(t *testing.T) {
	rng := testRNG()

	specs := []*Dynamics{
		{Kind: Clamp, Min: 100, Max: 200},
		{Kind: Ramp, Min: 100, Max: 200, Period: time.Second},
		{Kind: RandomWalk, Min: 100, Max: 200, Step: 25},
		{Kind: Noise, Min: 100, Max: 200},
	}

	for _, d := range specs {
		value := uint16(150)
		for i := 0; i < 200; i++ {
			value = evalWord(value, d, float64(i)*0.1, rng)
			if value < 100 || value > 200 {
				t.Fatalf("kind %d escaped [100,200]: %d", d.Kind, value)
			}
		}
	}
}
