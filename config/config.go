// Package config loads the ALPR runtime settings from environment variables
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/swdee/go-alpr/plate"
	"github.com/swdee/go-alpr/tracker"
)

// ErrInvalid is returned when a configuration value is out of range
var ErrInvalid = errors.New("invalid configuration")

const (
	BackendRKNN = "rknn"
	BackendONNX = "onnx"
)

// Config holds the ALPR pipeline settings
type Config struct {
	VehicleModel string
	PlateModel   string
	OCRModel     string
	OCRKeys      string
	Backend      string
	ONNXLibrary  string

	VehicleConfidence float64
	PlateConfidence   float64
	OCRConfidence     float64
	// OCRSkipConfidence is the cached confidence at which OCR stops
	// running for a track
	OCRSkipConfidence float64

	SortMaxAge       int
	SortMinHits      int
	SortIoUThreshold float64
	SortBootstrap    bool

	OCRAllowlist   string
	MinPlateLength int
	MaxPlateLength int
	PlatePadding   float64

	FrameSkip  int
	DefaultFPS float64

	DBPath   string
	HTTPAddr string
}

// Load reads the .env file if present, then builds the Config from the
// environment.  A missing .env file is not an error
func Load(files ...string) (*Config, error) {

	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading env file: %w", err)
		}
	}

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset or unparseable values
func FromEnv() *Config {
	return &Config{
		VehicleModel:      getEnv("VEHICLE_MODEL", "../data/models/rk3588/yolov8s-rk3588.rknn"),
		PlateModel:        getEnv("PLATE_MODEL", "../data/models/rk3588/lpd-yolov8n-rk3588.rknn"),
		OCRModel:          getEnv("OCR_MODEL", "../data/models/rk3588/ppocrv4_rec-rk3588.rknn"),
		OCRKeys:           getEnv("OCR_KEYS", "../data/ppocr_keys_v1.txt"),
		Backend:           getEnv("DETECTOR_BACKEND", BackendRKNN),
		ONNXLibrary:       getEnv("ONNX_LIBRARY", "onnxruntime.so"),
		VehicleConfidence: getEnvFloat("VEHICLE_CONFIDENCE", 0.5),
		PlateConfidence:   getEnvFloat("PLATE_CONFIDENCE", 0.3),
		OCRConfidence:     getEnvFloat("OCR_CONFIDENCE", 0.5),
		OCRSkipConfidence: getEnvFloat("OCR_SKIP_CONFIDENCE", 0.9),
		SortMaxAge:        getEnvInt("SORT_MAX_AGE", 30),
		SortMinHits:       getEnvInt("SORT_MIN_HITS", 3),
		SortIoUThreshold:  getEnvFloat("SORT_IOU_THRESHOLD", 0.3),
		SortBootstrap:     getEnvBool("SORT_BOOTSTRAP", false),
		OCRAllowlist:      getEnv("OCR_ALLOWLIST", "0-9A-Z"),
		MinPlateLength:    getEnvInt("MIN_PLATE_LENGTH", 5),
		MaxPlateLength:    getEnvInt("MAX_PLATE_LENGTH", 10),
		PlatePadding:      getEnvFloat("PLATE_PADDING", 0.1),
		FrameSkip:         getEnvInt("FRAME_SKIP", 0),
		DefaultFPS:        getEnvFloat("DEFAULT_FPS", 30),
		DBPath:            getEnv("DB_PATH", "alpr.db"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
	}
}

// Validate checks all values are within range
func (c *Config) Validate() error {

	if c.Backend != BackendRKNN && c.Backend != BackendONNX {
		return fmt.Errorf("%w: DETECTOR_BACKEND must be %q or %q, got %q",
			ErrInvalid, BackendRKNN, BackendONNX, c.Backend)
	}

	probs := []struct {
		name string
		val  float64
	}{
		{"VEHICLE_CONFIDENCE", c.VehicleConfidence},
		{"PLATE_CONFIDENCE", c.PlateConfidence},
		{"OCR_CONFIDENCE", c.OCRConfidence},
		{"OCR_SKIP_CONFIDENCE", c.OCRSkipConfidence},
	}

	for _, p := range probs {
		if !(p.val >= 0 && p.val <= 1) {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalid,
				p.name, p.val)
		}
	}

	if !(c.PlatePadding >= 0 && c.PlatePadding < 1) {
		return fmt.Errorf("%w: PLATE_PADDING must be in [0,1), got %v",
			ErrInvalid, c.PlatePadding)
	}

	if c.MinPlateLength < 1 || c.MaxPlateLength < c.MinPlateLength {
		return fmt.Errorf("%w: plate length bounds %d-%d", ErrInvalid,
			c.MinPlateLength, c.MaxPlateLength)
	}

	if c.FrameSkip < 0 {
		return fmt.Errorf("%w: FRAME_SKIP must be >= 0, got %d", ErrInvalid,
			c.FrameSkip)
	}

	if !(c.DefaultFPS > 0) {
		return fmt.Errorf("%w: DEFAULT_FPS must be > 0, got %v", ErrInvalid,
			c.DefaultFPS)
	}

	if _, err := plate.ParseAllowlist(c.OCRAllowlist); err != nil {
		return fmt.Errorf("%w: OCR_ALLOWLIST: %w", ErrInvalid, err)
	}

	if err := c.TrackerConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// TrackerConfig returns the tracker settings
func (c *Config) TrackerConfig() tracker.Config {
	return tracker.Config{
		MinHits:      c.SortMinHits,
		MaxAge:       c.SortMaxAge,
		IoUThreshold: c.SortIoUThreshold,
		Bootstrap:    c.SortBootstrap,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		Logf("Ignoring invalid integer %s=%q", key, value)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		Logf("Ignoring invalid number %s=%q", key, value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		Logf("Ignoring invalid boolean %s=%q", key, value)
	}
	return defaultValue
}
