package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// stateDim is the size of the state vector [cx, cy, s, r, vcx, vcy, vs]
	stateDim = 7
	// measureDim is the size of the measurement vector [cx, cy, s, r]
	measureDim = 4
)

// ErrDegenerateBox is returned when a box with a non-positive width or height,
// or non finite coordinates, is given to the Kalman filter
var ErrDegenerateBox = errors.New("degenerate bounding box")

// State represents the 1x7 state vector [cx, cy, s, r, vcx, vcy, vs] where s
// is the box area and r the aspect ratio (width/height)
type State [stateDim]float64

// KalmanFilter is a constant velocity Kalman filter tracking a single bounding
// box.  The aspect ratio is held constant and has no velocity component
type KalmanFilter struct {
	// x is the state mean
	x *mat.VecDense
	// p is the state covariance
	p *mat.Dense
	// motionMat is the state transition matrix F
	motionMat *mat.Dense
	// updateMat is the observation matrix H
	updateMat *mat.Dense
	// processCov is the process noise covariance Q
	processCov *mat.Dense
	// measureCov is the measurement noise covariance R
	measureCov *mat.Dense
	// lastArea and lastRatio are the most recent positive area and aspect
	// ratio values, used to clamp the state
	lastArea  float64
	lastRatio float64
}

// NewKalmanFilter initializes a Kalman filter from the given box with zero
// velocity
func NewKalmanFilter(box Box) (*KalmanFilter, error) {

	if !box.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateBox, box)
	}

	// transition matrix is identity with a unit time step on the velocity
	// of cx, cy and s
	motionMat := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < stateDim; i++ {
		motionMat.Set(i, i, 1)
	}

	for i := 0; i < 3; i++ {
		motionMat.Set(i, measureDim+i, 1)
	}

	// observation matrix picks the first four state elements
	updateMat := mat.NewDense(measureDim, stateDim, nil)

	for i := 0; i < measureDim; i++ {
		updateMat.Set(i, i, 1)
	}

	// measurement noise, area and aspect ratio are noisier than the center
	measureCov := mat.NewDense(measureDim, measureDim, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 10, 0,
		0, 0, 0, 10,
	})

	// initial covariance, velocities are unobserved so get a large
	// uncertainty
	p := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < stateDim; i++ {
		if i < measureDim {
			p.Set(i, i, 10)
		} else {
			p.Set(i, i, 1e4)
		}
	}

	// process noise
	processCov := mat.NewDense(stateDim, stateDim, nil)
	processStd := []float64{1, 1, 1, 1, 1e-2, 1e-2, 1e-4}

	for i, v := range processStd {
		processCov.Set(i, i, v)
	}

	z := box.ToZ()
	x := mat.NewVecDense(stateDim, nil)

	for i := 0; i < measureDim; i++ {
		x.SetVec(i, z[i])
	}

	return &KalmanFilter{
		x:          x,
		p:          p,
		motionMat:  motionMat,
		updateMat:  updateMat,
		processCov: processCov,
		measureCov: measureCov,
		lastArea:   z[2],
		lastRatio:  z[3],
	}, nil
}

// Predict advances the state and covariance one time step and returns the
// predicted bounding box
func (kf *KalmanFilter) Predict() Box {

	// stop the area shrinking to zero or below
	if kf.x.AtVec(2)+kf.x.AtVec(6) <= 0 {
		kf.x.SetVec(6, 0)
	}

	// x = F * x
	var next mat.VecDense
	next.MulVec(kf.motionMat, kf.x)
	kf.x.CopyVec(&next)

	// P = F * P * F' + Q
	var fp, fpf mat.Dense
	fp.Mul(kf.motionMat, kf.p)
	fpf.Mul(&fp, kf.motionMat.T())
	fpf.Add(&fpf, kf.processCov)
	kf.p.Copy(&fpf)

	kf.clamp()

	return kf.Box()
}

// Update corrects the state against the observed box
func (kf *KalmanFilter) Update(box Box) error {

	if !box.Valid() {
		return fmt.Errorf("%w: %v", ErrDegenerateBox, box)
	}

	z := box.ToZ()
	zVec := mat.NewVecDense(measureDim, z[:])

	// innovation (measurement residual) y = z - H * x
	var hx, innovation mat.VecDense
	hx.MulVec(kf.updateMat, kf.x)
	innovation.SubVec(zVec, &hx)

	// innovation covariance S = H * P * H' + R
	var hp, s mat.Dense
	hp.Mul(kf.updateMat, kf.p)
	s.Mul(&hp, kf.updateMat.T())
	s.Add(&s, kf.measureCov)

	sym := mat.NewSymDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		for j := i; j < measureDim; j++ {
			sym.SetSym(i, j, (s.At(i, j)+s.At(j, i))/2)
		}
	}

	chol := mat.Cholesky{}

	if ok := chol.Factorize(sym); !ok {
		return errors.New("failed to factorize innovation covariance")
	}

	// gain holds S^-1 * H * P which is the transpose of the Kalman gain
	// K = P * H' * S^-1
	var gain mat.Dense
	err := chol.SolveTo(&gain, &hp)

	if err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	// x = x + K * y
	var dx mat.VecDense
	dx.MulVec(gain.T(), &innovation)
	kf.x.AddVec(kf.x, &dx)

	// P = P - K * S * K'
	var ks, ksk mat.Dense
	ks.Mul(gain.T(), sym)
	ksk.Mul(&ks, &gain)
	kf.p.Sub(kf.p, &ksk)

	kf.clamp()

	return nil
}

// clamp keeps area and aspect ratio positive by falling back to the last
// positive values seen
func (kf *KalmanFilter) clamp() {

	if s := kf.x.AtVec(2); s > 0 {
		kf.lastArea = s
	} else {
		kf.x.SetVec(2, kf.lastArea)
	}

	if r := kf.x.AtVec(3); r > 0 {
		kf.lastRatio = r
	} else {
		kf.x.SetVec(3, kf.lastRatio)
	}
}

// Box returns the bounding box of the current state estimate
func (kf *KalmanFilter) Box() Box {
	return Z{kf.x.AtVec(0), kf.x.AtVec(1), kf.x.AtVec(2), kf.x.AtVec(3)}.ToBox()
}

// State returns a copy of the current state vector
func (kf *KalmanFilter) State() State {

	var s State

	for i := range s {
		s[i] = kf.x.AtVec(i)
	}

	return s
}

// Covariance returns a copy of the current state covariance
func (kf *KalmanFilter) Covariance() *mat.Dense {
	return mat.DenseCopyOf(kf.p)
}
