package main

import (
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

type handlers struct {
	logger *slog.Logger
}

type askRequest struct {
	Message  string `json:"message"`
	Scenario string `json:"scenario"`
}

// handleAsk streams one scripted scenario as a text/event-stream response.
// Frames are deliberately written in split chunks now and then so clients
// exercise their partial-frame handling against a realistic peer.
func (h *handlers) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for i, step := range scenarioFor(req.Scenario) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(step.delay):
		}

		payload, err := json.Marshal(step.payload())
		if err != nil {
			h.logger.Error("failed to marshal scenario step", slog.String("error", err.Error()))
			continue
		}

		frame := append([]byte("data: "), payload...)
		frame = append(frame, '\n', '\n')

		// Every third frame is delivered in two chunks with a flush between,
		// splitting mid-payload.
		if i%3 == 2 && len(frame) > 10 {
			w.Write(frame[:len(frame)/2])
			flusher.Flush()
			w.Write(frame[len(frame)/2:])
		} else {
			w.Write(frame)
		}
		flusher.Flush()
	}
}

type prescreenRequest struct {
	Text string `json:"text"`
}

type prescreenResponse struct {
	Blocked            bool     `json:"blocked"`
	Message            string   `json:"message,omitempty"`
	DetectedCategories []string `json:"detected_categories"`
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	ssnRe   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

func (h *handlers) handlePrescreen(w http.ResponseWriter, r *http.Request) {
	var req prescreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp := prescreenResponse{DetectedCategories: []string{}}
	if emailRe.MatchString(req.Text) {
		resp.DetectedCategories = append(resp.DetectedCategories, "email")
	}
	if ssnRe.MatchString(req.Text) {
		resp.DetectedCategories = append(resp.DetectedCategories, "national_id")
	}
	if len(resp.DetectedCategories) > 0 {
		resp.Blocked = true
		resp.Message = "Your message appears to contain personal data. Please remove it and try again."
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type speechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (h *handlers) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "text is required"})
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Write(silentWAV(len(req.Text)))
}

// silentWAV returns a minimal valid WAV payload of silence, sized roughly to
// the text length so playback duration tracks message length.
func silentWAV(chars int) []byte {
	const sampleRate = 8000
	samples := sampleRate / 10 * (chars/20 + 1) // ~100ms per 20 chars

	data := make([]byte, samples*2)
	buf := make([]byte, 0, 44+len(data))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(data)))
	buf = append(buf, "WAVEfmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1) // mono
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
