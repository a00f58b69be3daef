package forest

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func stepData(n int, noise float64, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		weekday := float64(i % 7)
		month := float64(i%12 + 1)
		x[i] = []float64{weekday, month}
		base := 10.0
		if weekday >= 5 {
			base = 2
		}
		y[i] = base + noise*rng.NormFloat64()
	}
	return x, y
}

func TestFit_ConstantTarget(t *testing.T) {
	x := [][]float64{{0, 1}, {1, 1}, {2, 2}, {3, 3}}
	y := []float64{85, 85, 85, 85}

	r, err := Fit(context.Background(), x, y, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range [][]float64{{0, 1}, {4, 12}, {6, 7}} {
		if got := r.Predict(row); got != 85 {
			t.Errorf("Predict(%v) = %v, want 85", row, got)
		}
	}
	if r.Size() != 100 {
		t.Errorf("expected 100 trees, got %d", r.Size())
	}
}

func TestFit_LearnsStep(t *testing.T) {
	x, y := stepData(140, 0, 1)
	r, err := Fit(context.Background(), x, y, Options{Trees: 20, Seed: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.Predict([]float64{2, 5}); math.Abs(got-10) > 1e-9 {
		t.Errorf("weekday prediction = %v, want 10", got)
	}
	if got := r.Predict([]float64{6, 5}); math.Abs(got-2) > 1e-9 {
		t.Errorf("weekend prediction = %v, want 2", got)
	}
	if r2 := r.R2(x, y); r2 < 0.999 {
		t.Errorf("expected near-perfect fit, R2 = %v", r2)
	}
}

func TestFit_Deterministic(t *testing.T) {
	x, y := stepData(200, 3, 99)

	tests := []struct {
		name    string
		workers int
	}{
		{"Sequential", 1},
		{"Parallel", 8},
	}

	ref, err := Fit(context.Background(), x, y, Options{Trees: 30, Seed: 42, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Fit(context.Background(), x, y, Options{Trees: 30, Seed: 42, Workers: tt.workers})
			if err != nil {
				t.Fatal(err)
			}
			for _, row := range x[:20] {
				if a, b := ref.Predict(row), r.Predict(row); a != b {
					t.Fatalf("prediction for %v differs: %v vs %v", row, a, b)
				}
			}
		})
	}
}

func TestFit_SeedMatters(t *testing.T) {
	x, y := stepData(200, 3, 99)
	a, _ := Fit(context.Background(), x, y, Options{Trees: 10, Seed: 1})
	b, _ := Fit(context.Background(), x, y, Options{Trees: 10, Seed: 2})

	same := true
	for _, row := range x {
		if a.Predict(row) != b.Predict(row) {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should give different bootstrap samples on noisy data")
	}
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []float64
		want error
	}{
		{"Empty", nil, nil, ErrNoSamples},
		{"LengthMismatch", [][]float64{{1}}, []float64{1, 2}, ErrShape},
		{"Ragged", [][]float64{{1, 2}, {1}}, []float64{1, 2}, ErrShape},
		{"NoColumns", [][]float64{{}}, []float64{1}, ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(context.Background(), tt.x, tt.y, DefaultOptions())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x, y := stepData(50, 1, 3)
	if _, err := Fit(ctx, x, y, DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPredict_NonNegativeForNonNegativeTargets(t *testing.T) {
	x, y := stepData(100, 4, 5)
	for i := range y {
		y[i] = math.Abs(y[i])
	}
	r, err := Fit(context.Background(), x, y, Options{Trees: 15, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	for w := 0.0; w < 7; w++ {
		for m := 1.0; m <= 12; m++ {
			if p := r.Predict([]float64{w, m}); p < 0 {
				t.Fatalf("negative prediction %v at %v/%v", p, w, m)
			}
		}
	}
}
