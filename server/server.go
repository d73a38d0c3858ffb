// Package server exposes the annotated video stream and the plate cache of a
// running ALPR pipeline over HTTP.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/swdee/go-alpr"
	"github.com/swdee/go-alpr/platecache"
)

// Pipeline is the state of a running ALPR pipeline served over HTTP
type Pipeline interface {
	Cache() *platecache.Cache
	Stats() alpr.Stats
}

// ErrorResponse is the JSON body of failed requests
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server serves the MJPEG stream and plate cache API
type Server struct {
	pipeline Pipeline
	frames   *broadcaster
	router   *mux.Router
}

// New returns a Server for the pipeline
func New(p Pipeline) *Server {

	s := &Server{
		pipeline: p,
		frames:   newBroadcaster(),
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/stream", s.handleStream).Methods("GET")
	s.router.HandleFunc("/plates", s.handlePlates).Methods("GET")
	s.router.HandleFunc("/plates/{id}", s.handlePlate).Methods("GET")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publish sends a JPEG encoded annotated frame to all stream clients
func (s *Server) Publish(jpeg []byte) {
	s.frames.publish(jpeg)
}

// Clients returns the number of connected stream clients
func (s *Server) Clients() int {
	return s.frames.len()
}

// handleStream streams published frames to the browser as MJPEG
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {

	Logf("New client connection established")

	frames := s.frames.subscribe()
	defer s.frames.unsubscribe(frames)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			Logf("Client disconnected")
			return

		case frame := <-frames:
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(frame)
			w.Write([]byte("\r\n"))

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// handlePlates returns all cached plate readings
func (s *Server) handlePlates(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, s.pipeline.Cache().Snapshot())
}

// handlePlate returns the cached plate reading of a single track
func (s *Server) handlePlate(w http.ResponseWriter, r *http.Request) {

	id, err := strconv.Atoi(mux.Vars(r)["id"])

	if err != nil {
		sendErrorResponse(w, "invalid_request", "track id must be an integer",
			http.StatusBadRequest)
		return
	}

	entry, ok := s.pipeline.Cache().Lookup(id)

	if !ok {
		sendErrorResponse(w, "not_found", "no plate reading for track "+strconv.Itoa(id),
			http.StatusNotFound)
		return
	}

	sendJSON(w, http.StatusOK, entry)
}

// handleStats returns the pipeline counters
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, s.pipeline.Stats())
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logf("Error encoding response: %v", err)
	}
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	sendJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// Logf is the logger used for client connections and encoding failures
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger, nil disables logging
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}

	Logf = f
}
