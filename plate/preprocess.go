package plate

import (
	"gocv.io/x/gocv"
)

// Preprocess prepares a BGR plate crop for OCR by converting it to grayscale,
// applying a gaussian adaptive threshold and denoising.  The result is
// written to dst as a 3 channel BGR image so it can be fed to models that
// expect color input
func Preprocess(src gocv.Mat, dst *gocv.Mat) {

	gray := gocv.NewMat()
	defer gray.Close()

	if src.Channels() == 1 {
		src.CopyTo(&gray)
	} else {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	}

	binary := gocv.NewMat()
	defer binary.Close()

	gocv.AdaptiveThreshold(gray, &binary, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinary, 11, 2)

	denoised := gocv.NewMat()
	defer denoised.Close()

	gocv.FastNlMeansDenoisingWithParams(binary, &denoised, 10, 7, 21)

	gocv.CvtColor(denoised, dst, gocv.ColorGrayToBGR)
}
