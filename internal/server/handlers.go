package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/collection"
	"jordanella.com/mtg-scanner-go/internal/database"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/overlay"
	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/scanner"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type scannerStatus struct {
	State    string               `json:"state"`
	Tracking bool                 `json:"tracking"`
	Error    string               `json:"error,omitempty"`
	Bounds   *vision.CardBounds   `json:"bounds,omitempty"`
	Session  *scanner.SessionInfo `json:"session,omitempty"`
	Options  optionsPayload       `json:"options"`
}

type optionsPayload struct {
	DeviceID    string              `json:"deviceId"`
	Tier        string              `json:"tier"`
	Style       string              `json:"style"`
	Corrections *vision.Corrections `json:"corrections,omitempty"`
	JPEGQuality int                 `json:"jpegQuality"`
}

type recognitionResponse struct {
	Capture *vision.CaptureResult `json:"capture"`
	Match   *recognition.Match    `json:"match,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var camErr *camera.Error
	if errors.As(err, &camErr) {
		resp.Error = camErr.Message
		resp.Kind = camErr.Kind.String()
	}
	s.writeJSON(w, status, resp)
}

// statusFor maps camera failures onto HTTP status codes
func statusFor(err error) int {
	switch camera.KindOf(err) {
	case camera.KindPermissionDenied:
		return http.StatusForbidden
	case camera.KindDeviceNotFound:
		return http.StatusNotFound
	case camera.KindDeviceBusy:
		return http.StatusConflict
	case camera.KindConstraintsNotSatisfiable:
		return http.StatusUnprocessableEntity
	case camera.KindCaptureNotReady:
		return http.StatusConflict
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	report := s.app.Health.Run(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, report)
}

func (s *Server) handleListCameras(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cameras":  s.app.Scanner.Devices(),
		"selected": s.app.Scanner.Options().DeviceID,
	})
}

func (s *Server) handleDetectCameras(w http.ResponseWriter, r *http.Request) {
	devices, err := s.app.Scanner.DetectCameras(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cameras":  devices,
		"selected": s.app.Scanner.Options().DeviceID,
	})
}

func (s *Server) handleSelectCamera(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("deviceId is required"))
		return
	}
	s.app.Scanner.SetDevice(req.DeviceID)
	s.writeJSON(w, http.StatusOK, map[string]string{"selected": req.DeviceID})
}

func (s *Server) status() scannerStatus {
	ctrl := s.app.Scanner
	opts := ctrl.Options()
	corr := opts.Corrections

	st := scannerStatus{
		State:    ctrl.State().String(),
		Tracking: ctrl.Tracking(),
		Error:    s.currentError(),
		Bounds:   ctrl.Bounds(),
		Options: optionsPayload{
			DeviceID:    opts.DeviceID,
			Tier:        string(opts.Tier),
			Style:       string(opts.Style),
			Corrections: &corr,
			JPEGQuality: opts.JPEGQuality,
		},
	}
	if info, ok := ctrl.Session(); ok {
		st.Session = &info
	}
	return st
}

func (s *Server) handleScannerStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleUpdateOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid options: %w", err))
		return
	}

	// validate everything first so a rejected request changes nothing
	var (
		tier  camera.Tier
		style overlay.Style
		err   error
	)
	if req.Tier != "" {
		if tier, err = camera.ParseTier(req.Tier); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.Style != "" {
		if style, err = overlay.ParseStyle(req.Style); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.JPEGQuality != 0 && (req.JPEGQuality < 1 || req.JPEGQuality > 100) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("jpegQuality must be between 1 and 100"))
		return
	}

	ctrl := s.app.Scanner
	if req.Tier != "" {
		ctrl.SetTier(tier)
	}
	if req.Style != "" {
		ctrl.SetStyle(style)
	}
	if req.DeviceID != "" {
		ctrl.SetDevice(req.DeviceID)
	}
	if req.Corrections != nil {
		ctrl.SetCorrections(*req.Corrections)
	}
	if req.JPEGQuality != 0 {
		ctrl.SetJPEGQuality(req.JPEGQuality)
	}
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Scanner.StartStream(r.Context()); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.app.Scanner.StopStream()
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	surface := s.app.Scanner.Overlay()
	if surface == nil {
		s.writeError(w, http.StatusConflict, fmt.Errorf("overlay not initialized"))
		return
	}
	snap := surface.Snapshot()
	if snap == nil || snap.Bounds().Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, snap); err != nil {
		s.logger.Error("Failed to encode overlay", err)
	}
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	capture, match, err := s.app.CaptureAndRecognize(r.Context())
	if capture == nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	resp := recognitionResponse{Capture: capture, Match: match}
	if err != nil {
		resp.Error = recognition.UserMessage(err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCaptureImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, ok := s.capture(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("capture %s not found", id))
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(c.Image)
}

// handleRecognizeUpload accepts multipart field "image" or a raw image body
func (s *Server) handleRecognizeUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, vision.MaxUploadBytes+1<<20)

	var data []byte
	var err error
	if file, _, ferr := r.FormFile("image"); ferr == nil {
		defer file.Close()
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	capture, match, err := s.app.RecognizeUpload(r.Context(), data)
	if capture == nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.storeCapture(capture)

	resp := recognitionResponse{Capture: capture, Match: match}
	if err != nil {
		resp.Error = recognition.UserMessage(err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCatalogStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": s.app.Catalog.Status(),
		"cards":  s.app.Catalog.Len(),
	})
}

func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	err := s.app.Catalog.Load(r.Context(), query)
	resp := map[string]interface{}{
		"status": s.app.Catalog.Status(),
		"cards":  s.app.Catalog.Len(),
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results, err := s.app.Search(r.Context(), q)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	if results == nil {
		results = []cards.Card{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": results,
	})
}

func (s *Server) handleListCollection(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Collection.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	totals, err := s.app.Collection.Totals()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*database.CollectionCard{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cards":  list,
		"totals": totals,
	})
}

func (s *Server) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID string `json:"cardId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("cardId is required"))
		return
	}

	card, qty, err := s.app.AddToCollection(req.CardID)
	if err != nil {
		status := http.StatusInternalServerError
		if _, ok := s.app.Catalog.Get(req.CardID); !ok {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"card":     card,
		"quantity": qty,
	})
}

func (s *Server) handleRemoveFromCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.app.Collection.Remove(id); err != nil {
		if errors.Is(err, collection.ErrCardNotOwned) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	scans, err := s.app.Collection.RecentScans(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if scans == nil {
		scans = []*database.ScanRecord{}
	}
	s.writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	recent := s.app.Reporter.Recent(50)
	if recent == nil {
		recent = []*logging.ErrorReport{}
	}
	persisted, err := s.app.DB.GetErrorStatsByCategory(time.Now().Add(-24 * time.Hour))
	if err != nil {
		s.logger.Error("Failed to read persisted error stats", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"recent":  recent,
		"stats":   s.app.Reporter.Stats(),
		"last24h": persisted,
	})
}
