package report

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/swdee/go-alpr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ConfidenceHistogram saves a PNG histogram of the plate reading
// confidences of the unique vehicles in the results
func ConfidenceHistogram(results []alpr.Result, path string) error {

	// take the final reading of each vehicle so long tracks do not dominate
	best := make(map[int]float64)

	for _, res := range results {
		best[res.VehicleID] = res.Confidence
	}

	values := make(plotter.Values, 0, len(best))

	for _, conf := range best {
		values = append(values, conf)
	}

	if len(values) == 0 {
		return fmt.Errorf("no results to plot")
	}

	p := plot.New()
	p.Title.Text = "Plate Reading Confidence"
	p.X.Label.Text = "Confidence"
	p.Y.Label.Text = "Vehicles"
	p.X.Min = 0
	p.X.Max = 1

	hist, err := plotter.NewHist(values, 20)

	if err != nil {
		return fmt.Errorf("error creating histogram: %w", err)
	}

	hist.FillColor = color.RGBA{R: 0, G: 194, B: 255, A: 255}
	hist.LineStyle.Width = vg.Points(0.5)
	p.Add(hist)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("error saving histogram: %w", err)
	}

	return nil
}

// VehiclesPerFrame renders an HTML line chart of the number of vehicles
// with a plate reading in each frame
func VehiclesPerFrame(results []alpr.Result, totalFrames int, w io.Writer) error {

	counts := make(map[int]int)
	maxFrame := totalFrames - 1

	for _, res := range results {
		counts[res.FrameNumber]++

		if res.FrameNumber > maxFrame {
			maxFrame = res.FrameNumber
		}
	}

	frames := make([]int, 0, maxFrame+1)

	for i := 0; i <= maxFrame; i++ {
		frames = append(frames, i)
	}

	x := make([]string, 0, len(frames))
	y := make([]opts.LineData, 0, len(frames))

	for _, f := range frames {
		x = append(x, strconv.Itoa(f))
		y = append(y, opts.LineData{Value: counts[f]})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "ALPR Vehicles", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vehicles per Frame", Subtitle: fmt.Sprintf("frames=%d results=%d", len(frames), len(results))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Vehicles", NameLocation: "middle", NameGap: 30}),
	)

	line.SetXAxis(x).AddSeries("vehicles", y)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("error rendering chart: %w", err)
	}

	return nil
}
