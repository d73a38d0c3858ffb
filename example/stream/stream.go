/*
Example code showing how to stream annotated ALPR results of a video to a
browser over HTTP along with a JSON API of the plates read
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/backend"
	"github.com/swdee/go-alpr/config"
	"github.com/swdee/go-alpr/render"
	"github.com/swdee/go-alpr/server"
	"gocv.io/x/gocv"
)

// Demo defines the struct for running the ALPR streaming demo
type Demo struct {
	// vidBuffer buffers the video frames into memory
	vidBuffer []gocv.Mat
	pipeline  *alpr.ALPR
	srv       *server.Server
	// interval between frames to simulate a live camera
	interval time.Duration
	font     render.Font
	trail    render.TrailStyle
}

// NewDemo returns an instance of Demo with the video buffered into memory
func NewDemo(vidFile string, pipeline *alpr.ALPR, fps float64) (*Demo, error) {

	d := &Demo{
		pipeline: pipeline,
		srv:      server.New(pipeline),
		font:     render.DefaultFont(),
		trail:    render.DefaultTrailStyle(),
	}

	if err := d.bufferVideo(vidFile); err != nil {
		return nil, err
	}

	if len(d.vidBuffer) == 0 {
		return nil, errors.New("video has no frames")
	}

	d.interval = time.Duration(float64(time.Second) / fps)

	return d, nil
}

// bufferVideo reads in the video frames and saves them to a buffer
func (d *Demo) bufferVideo(vidFile string) error {

	// open handle to read frames of video file
	video, err := gocv.VideoCaptureFile(vidFile)

	if err != nil {
		return err
	}

	defer video.Close()

	for {
		img := gocv.NewMat()

		// read the next frame from the video
		if ok := video.Read(&img); !ok {
			img.Close()
			break
		}

		if img.Empty() {
			img.Close()
			continue
		}

		d.vidBuffer = append(d.vidBuffer, img)
	}

	return nil
}

// Close frees the buffered frames
func (d *Demo) Close() {
	for _, img := range d.vidBuffer {
		img.Close()
	}
}

// Run loops over the video processing frames and publishing them to the
// stream clients until the context is cancelled
func (d *Demo) Run(ctx context.Context) {

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	resImg := gocv.NewMat()
	defer resImg.Close()

	// pointer to position in video buffer
	frameNum := -1

	// used for calculating FPS
	frameCount := 0
	startTime := time.Now()
	fps := float64(0)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
		}

		frameNum++

		if frameNum > len(d.vidBuffer)-1 {
			// last frame reached so loop back to start of video with a clean
			// pipeline
			frameNum = 0
			d.pipeline.Reset()
		}

		img := d.vidBuffer[frameNum]

		res, err := d.pipeline.ProcessFrame(frameNum, img)

		if err != nil {
			log.Printf("Error processing frame %d: %v", frameNum, err)
			continue
		}

		// skip rendering when no client is connected
		if d.srv.Clients() == 0 {
			continue
		}

		img.CopyTo(&resImg)

		render.TrackerBoxes(&resImg, res.Tracks, nil, d.font, 2)
		render.Trail(&resImg, res.Tracks, d.pipeline.Trail(), d.trail)
		render.PlateBoxes(&resImg, res.Results, d.font, 2)
		render.FrameInfo(&resImg, frameNum, fps, d.pipeline.Stats(), d.font)

		// Encode the image to JPEG format
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, resImg)

		if err != nil {
			log.Printf("Error encoding frame %d: %v", frameNum, err)
			continue
		}

		// copy the bytes out as the native buffer is freed
		d.srv.Publish(append([]byte(nil), buf.GetBytes()...))
		buf.Close()

		// calculate FPS
		frameCount++
		elapsed := time.Since(startTime).Seconds()

		if elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			startTime = time.Now()
		}
	}
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vidFile := flag.String("v", "../data/traffic.mp4", "Video file to stream")
	addr := flag.String("a", "", "HTTP Server listen address, defaults to HTTP_ADDR")
	envFile := flag.String("e", "", "Environment file to load settings from, defaults to .env")

	flag.Parse()

	var envFiles []string

	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}

	cfg, err := config.Load(envFiles...)

	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

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

	demo, err := NewDemo(*vidFile, pipeline, cfg.DefaultFPS)

	if err != nil {
		log.Fatal("Error creating demo: ", err)
	}

	defer demo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go demo.Run(ctx)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: demo.srv,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("Open browser and view video at http://localhost%s/stream\n",
		cfg.HTTPAddr)
	log.Printf("Plate readings available at http://localhost%s/plates\n",
		cfg.HTTPAddr)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	log.Println("done")
}
