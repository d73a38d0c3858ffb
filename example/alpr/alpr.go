/*
Example code showing how to perform Automatic License Plate Recognition (ALPR)
on a video file by tracking vehicles with SORT and caching the best plate
reading of each vehicle
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/backend"
	"github.com/swdee/go-alpr/config"
	"github.com/swdee/go-alpr/render"
	"github.com/swdee/go-alpr/report"
	"github.com/swdee/go-alpr/store"
	"gocv.io/x/gocv"
)

// classNames are the COCO labels up to the last vehicle class
var classNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck",
}

// Outputs holds the optional result writers of a run
type Outputs struct {
	csv    *report.CSVWriter
	video  *gocv.VideoWriter
	db     *store.DB
	runID  string
	result []alpr.Result
}

// Close flushes and closes all writers
func (o *Outputs) Close() {

	if o.csv != nil {
		if err := o.csv.Close(); err != nil {
			log.Printf("Error closing CSV file: %v", err)
		}
	}

	if o.video != nil {
		o.video.Close()
	}

	if o.db != nil {
		o.db.Close()
	}
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vidFile := flag.String("v", "../data/traffic.mp4", "Video file to run ALPR on")
	csvFile := flag.String("o", "alpr_results.csv", "The output CSV file of plate readings")
	saveFile := flag.String("s", "", "Save the annotated video to this MP4 file")
	reportFile := flag.String("r", "", "Save the summary report to this text file")
	chartDir := flag.String("c", "", "Directory to save result charts to")
	dbPath := flag.String("d", "", "SQLite results database, defaults to DB_PATH")
	noDB := flag.Bool("n", false, "Do not store results in the database")
	envFile := flag.String("e", "", "Environment file to load settings from, defaults to .env")
	truthFile := flag.String("g", "", "Ground truth CSV to evaluate plate readings against")

	flag.Parse()

	var envFiles []string

	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}

	cfg, err := config.Load(envFiles...)

	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	var groundTruth []report.GroundTruth

	if *truthFile != "" {
		groundTruth, err = report.LoadGroundTruth(*truthFile)

		if err != nil {
			log.Fatal("Error loading ground truth: ", err)
		}
	}

	// load models
	backends, err := backend.Open(cfg)

	if err != nil {
		log.Fatal("Error loading models: ", err)
	}

	defer backends.Release()

	pipeline, err := alpr.NewALPR(cfg, backends.Vehicles, backends.Plates,
		backends.Reader)

	if err != nil {
		log.Fatal("Error initializing ALPR: ", err)
	}

	defer pipeline.Close()

	video, err := gocv.VideoCaptureFile(*vidFile)

	if err != nil {
		log.Fatal("Error opening video file: ", err)
	}

	defer video.Close()

	fps := video.Get(gocv.VideoCaptureFPS)

	if fps <= 0 {
		fps = cfg.DefaultFPS
	}

	width := int(video.Get(gocv.VideoCaptureFrameWidth))
	height := int(video.Get(gocv.VideoCaptureFrameHeight))
	frameCount := int(video.Get(gocv.VideoCaptureFrameCount))

	log.Printf("Video %s: %dx%d @ %.2f FPS, %d frames\n", *vidFile, width,
		height, fps, frameCount)

	out, err := openOutputs(cfg, *vidFile, *csvFile, *saveFile, *noDB, fps,
		width, height)

	if err != nil {
		log.Fatal(err)
	}

	defer out.Close()

	// stop cleanly on ctrl-c so the outputs are still written
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	frames := run(ctx, pipeline, video, out)

	stats := pipeline.Stats()

	if out.db != nil {
		if err := out.db.FinishRun(context.Background(), out.runID, stats); err != nil {
			log.Printf("Error finishing run: %v", err)
		}

		printPlates(out.db, out.runID)
	}

	summary := report.Summarise(out.result, frames)

	if err := report.WriteSummary(os.Stdout, summary, stats); err != nil {
		log.Printf("Error writing summary: %v", err)
	}

	if *reportFile != "" {
		if err := report.SaveSummary(*reportFile, summary, stats); err != nil {
			log.Printf("Error saving summary: %v", err)
		} else {
			log.Printf("Saved summary report to %s\n", *reportFile)
		}
	}

	if *chartDir != "" {
		saveCharts(*chartDir, out.result, frames)
	}

	if *truthFile != "" {
		ev := report.Evaluate(out.result, groundTruth)

		if err := report.WriteEvaluation(os.Stdout, ev); err != nil {
			log.Printf("Error writing evaluation: %v", err)
		}
	}

	log.Println("done")
}

// openOutputs creates the result writers requested
func openOutputs(cfg *config.Config, vidFile, csvFile, saveFile string,
	noDB bool, fps float64, width, height int) (*Outputs, error) {

	out := &Outputs{}

	var err error

	if csvFile != "" {
		out.csv, err = report.CreateCSV(csvFile)

		if err != nil {
			return nil, fmt.Errorf("Error creating CSV file: %w", err)
		}
	}

	if saveFile != "" {
		out.video, err = gocv.VideoWriterFile(saveFile, "mp4v", fps, width,
			height, true)

		if err != nil {
			out.Close()
			return nil, fmt.Errorf("Error creating video writer: %w", err)
		}
	}

	if !noDB {
		out.db, err = store.Open(cfg.DBPath)

		if err != nil {
			out.Close()
			return nil, fmt.Errorf("Error opening database: %w", err)
		}

		out.runID, err = out.db.CreateRun(context.Background(), vidFile)

		if err != nil {
			out.Close()
			return nil, fmt.Errorf("Error creating run: %w", err)
		}

		log.Printf("Storing results in %s run %s\n", cfg.DBPath, out.runID)
	}

	return out, nil
}

// run processes the video frames until the end of the video or the context
// is cancelled and returns the number of frames read
func run(ctx context.Context, pipeline *alpr.ALPR, video *gocv.VideoCapture,
	out *Outputs) int {

	img := gocv.NewMat()
	defer img.Close()

	resImg := gocv.NewMat()
	defer resImg.Close()

	font := render.DefaultFont()
	trailStyle := render.DefaultTrailStyle()

	// used for calculating FPS
	frameNum := 0
	processed := 0
	startTime := time.Now()
	fps := float64(0)

	for ; ; frameNum++ {

		if ctx.Err() != nil {
			log.Printf("Interrupted at frame %d\n", frameNum)
			break
		}

		// read the next frame from the video
		if ok := video.Read(&img); !ok {
			// reached last video frame
			break
		}

		if img.Empty() {
			continue
		}

		res, err := pipeline.ProcessFrame(frameNum, img)

		if err != nil {
			log.Printf("Error processing frame %d: %v", frameNum, err)
			continue
		}

		if !res.Skipped {
			out.result = append(out.result, res.Results...)

			if out.csv != nil {
				if err := out.csv.Write(res.Results); err != nil {
					log.Printf("Error writing CSV: %v", err)
				}
			}

			if out.db != nil {
				if err := out.db.InsertResults(ctx, out.runID, res.Results); err != nil {
					log.Printf("Error storing results: %v", err)
				}
			}

			processed++
		}

		elapsed := time.Since(startTime).Seconds()

		if elapsed >= 1.0 {
			fps = float64(processed) / elapsed
			processed = 0
			startTime = time.Now()
		}

		if out.video != nil {
			img.CopyTo(&resImg)

			render.TrackerBoxes(&resImg, res.Tracks, classNames, font, 2)
			render.Trail(&resImg, res.Tracks, pipeline.Trail(), trailStyle)
			render.PlateBoxes(&resImg, res.Results, font, 2)
			render.FrameInfo(&resImg, frameNum, fps, pipeline.Stats(), font)

			if err := out.video.Write(resImg); err != nil {
				log.Printf("Error writing video frame: %v", err)
			}
		}

		if frameNum > 0 && frameNum%100 == 0 {
			stats := pipeline.Stats()
			log.Printf("Frame %d: %.1f FPS, vehicles=%d, plates=%d, last frame "+
				"detect=%s track=%s plates=%s\n", frameNum, fps,
				stats.UniqueVehicles, stats.CacheSize,
				res.Timing.DetectDuration(), res.Timing.TrackDuration(),
				res.Timing.PlateDuration())
		}
	}

	return frameNum
}

// printPlates logs the best plate reading of each vehicle stored for the run
func printPlates(db *store.DB, runID string) {

	plates, err := db.PlatesForRun(context.Background(), runID)

	if err != nil {
		log.Printf("Error reading plates: %v", err)
		return
	}

	for _, p := range plates {
		log.Printf("Vehicle %d: %s (%.1f%%) frames %d-%d\n", p.VehicleID,
			p.PlateText, p.Confidence*100, p.FirstFrame, p.LastFrame)
	}
}

// saveCharts writes the confidence histogram and vehicles per frame chart
func saveCharts(dir string, results []alpr.Result, frames int) {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Error creating chart directory: %v", err)
		return
	}

	if len(results) > 0 {
		file := filepath.Join(dir, "confidence.png")

		if err := report.ConfidenceHistogram(results, file); err != nil {
			log.Printf("Error saving confidence histogram: %v", err)
		} else {
			log.Printf("Saved confidence histogram to %s\n", file)
		}
	}

	file := filepath.Join(dir, "vehicles.html")
	f, err := os.Create(file)

	if err != nil {
		log.Printf("Error creating chart file: %v", err)
		return
	}

	defer f.Close()

	if err := report.VehiclesPerFrame(results, frames, f); err != nil {
		log.Printf("Error saving vehicles chart: %v", err)
		return
	}

	log.Printf("Saved vehicles per frame chart to %s\n", file)
}
