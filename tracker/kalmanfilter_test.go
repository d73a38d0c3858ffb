package tracker

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// floatsEqual compares slices of float64
func floatsEqual(a, b []float64, epsilon float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if diff := a[i] - b[i]; diff > epsilon || diff < -epsilon {
			return false
		}
	}
	return true
}

// matricesEqual compare matrices
func matricesEqual(a, b mat.Matrix, epsilon float64) bool {
	r1, c1 := a.Dims()
	r2, c2 := b.Dims()

	if r1 != r2 || c1 != c2 {
		return false
	}

	for i := 0; i < r1; i++ {
		for j := 0; j < c1; j++ {
			if diff := a.At(i, j) - b.At(i, j); diff > epsilon || diff < -epsilon {
				return false
			}
		}
	}

	return true
}

func TestBoxToZ(t *testing.T) {

	z := NewBox(0, 0, 10, 20).ToZ()
	expected := Z{5, 10, 200, 0.5}

	if !floatsEqual(z[:], expected[:], 1e-9) {
		t.Errorf("expected z %v, got %v", expected, z)
	}

	box := z.ToBox()
	expectedBox := NewBox(0, 0, 10, 20)

	if !floatsEqual(box[:], expectedBox[:], 1e-9) {
		t.Errorf("expected box %v, got %v", expectedBox, box)
	}
}

// TestKalmanFilter tests the initial state and the first predict step against
// values derived by hand from F * P * F' + Q
func TestKalmanFilter(t *testing.T) {

	kf, err := NewKalmanFilter(NewBox(100, 100, 150, 140))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := kf.State()
	expectedState := State{125, 120, 2000, 1.25, 0, 0, 0}

	if !floatsEqual(state[:], expectedState[:], 1e-9) {
		t.Errorf("expected state %v, got %v", expectedState, state)
	}

	expectedCovInit := mat.NewDiagDense(7, []float64{10, 10, 10, 10, 1e4, 1e4, 1e4})

	if !matricesEqual(kf.Covariance(), expectedCovInit, 1e-9) {
		t.Errorf("expected covariance %v, got %v",
			mat.Formatted(expectedCovInit, mat.Prefix(""), mat.Excerpt(0)),
			mat.Formatted(kf.Covariance(), mat.Prefix(""), mat.Excerpt(0)),
		)
	}

	// zero velocity so the predicted box does not move
	box := kf.Predict()
	expectedBox := NewBox(100, 100, 150, 140)

	if !floatsEqual(box[:], expectedBox[:], 1e-9) {
		t.Errorf("expected predicted box %v, got %v", expectedBox, box)
	}

	expectedCovPredict := mat.NewDense(7, 7, []float64{
		10011, 0, 0, 0, 1e4, 0, 0,
		0, 10011, 0, 0, 0, 1e4, 0,
		0, 0, 10011, 0, 0, 0, 1e4,
		0, 0, 0, 11, 0, 0, 0,
		1e4, 0, 0, 0, 10000.01, 0, 0,
		0, 1e4, 0, 0, 0, 10000.01, 0,
		0, 0, 1e4, 0, 0, 0, 10000.0001,
	})

	if !matricesEqual(kf.Covariance(), expectedCovPredict, 1e-6) {
		t.Errorf("expected covariance %v, got %v",
			mat.Formatted(expectedCovPredict, mat.Prefix(""), mat.Excerpt(0)),
			mat.Formatted(kf.Covariance(), mat.Prefix(""), mat.Excerpt(0)),
		)
	}
}

func TestKalmanFilterUpdate(t *testing.T) {

	kf, err := NewKalmanFilter(NewBox(100, 100, 150, 140))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kf.Predict()

	err = kf.Update(NewBox(102, 100, 152, 140))

	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	state := kf.State()

	// the center gain is 10011/10012 and the velocity gain 10000/10012
	if math.Abs(state[0]-(125+2*10011.0/10012.0)) > 1e-6 {
		t.Errorf("expected cx close to 127, got %v", state[0])
	}

	if math.Abs(state[4]-2*10000.0/10012.0) > 1e-6 {
		t.Errorf("expected vcx close to 2, got %v", state[4])
	}

	if math.Abs(state[1]-120) > 1e-9 || math.Abs(state[5]) > 1e-9 {
		t.Errorf("expected y unchanged, got cy=%v vcy=%v", state[1], state[5])
	}

	// covariance must stay symmetric
	cov := kf.Covariance()

	if !matricesEqual(cov, cov.T(), 1e-6) {
		t.Errorf("expected symmetric covariance, got %v",
			mat.Formatted(cov, mat.Prefix(""), mat.Excerpt(0)))
	}
}

// TestKalmanFilterDoublePredict checks predicting twice without an update
// applies the constant velocity recurrence once per call
func TestKalmanFilterDoublePredict(t *testing.T) {

	kf, err := NewKalmanFilter(NewBox(100, 100, 150, 140))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i <= 3; i++ {
		kf.Predict()
		shift := float64(2 * i)

		if err := kf.Update(NewBox(100+shift, 100, 150+shift, 140)); err != nil {
			t.Fatalf("unexpected update error: %v", err)
		}
	}

	kf.Predict()
	s1 := kf.State()

	box := kf.Predict()
	s2 := kf.State()

	expected := State{
		s1[0] + s1[4],
		s1[1] + s1[5],
		s1[2] + s1[6],
		s1[3],
		s1[4],
		s1[5],
		s1[6],
	}

	if !floatsEqual(s2[:], expected[:], 1e-9) {
		t.Errorf("expected state %v, got %v", expected, s2)
	}

	expectedBox := Z{expected[0], expected[1], expected[2], expected[3]}.ToBox()

	if !floatsEqual(box[:], expectedBox[:], 1e-9) {
		t.Errorf("expected box %v, got %v", expectedBox, box)
	}

	// moving right so the second prediction must be further right
	if s2[0] <= s1[0] {
		t.Errorf("expected cx to advance, got %v then %v", s1[0], s2[0])
	}
}

func TestKalmanFilterDegenerateBox(t *testing.T) {

	boxes := []Box{
		NewBox(10, 10, 10, 20),
		NewBox(10, 10, 20, 5),
		NewBox(math.NaN(), 0, 10, 10),
		NewBox(0, 0, math.Inf(1), 10),
	}

	for _, box := range boxes {
		_, err := NewKalmanFilter(box)

		if !errors.Is(err, ErrDegenerateBox) {
			t.Errorf("expected ErrDegenerateBox for %v, got %v", box, err)
		}
	}

	kf, err := NewKalmanFilter(NewBox(0, 0, 10, 10))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := kf.State()

	for _, box := range boxes {
		if err := kf.Update(box); !errors.Is(err, ErrDegenerateBox) {
			t.Errorf("expected ErrDegenerateBox for %v, got %v", box, err)
		}
	}

	after := kf.State()

	if !floatsEqual(before[:], after[:], 0) {
		t.Errorf("rejected update changed state from %v to %v", before, after)
	}
}

// TestKalmanFilterAreaStaysPositive shrinks a box quickly so the area
// velocity is strongly negative then keeps predicting
func TestKalmanFilterAreaStaysPositive(t *testing.T) {

	kf, err := NewKalmanFilter(NewBox(0, 0, 100, 100))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for size := 90.0; size >= 20; size -= 10 {
		kf.Predict()
		off := (100 - size) / 2

		if err := kf.Update(NewBox(off, off, off+size, off+size)); err != nil {
			t.Fatalf("unexpected update error: %v", err)
		}
	}

	for i := 0; i < 100; i++ {
		box := kf.Predict()
		state := kf.State()

		if state[2] <= 0 || state[3] <= 0 {
			t.Fatalf("predict %d: expected positive area and ratio, got %v", i, state)
		}

		if !box.Valid() {
			t.Fatalf("predict %d: expected valid box, got %v", i, box)
		}
	}
}
