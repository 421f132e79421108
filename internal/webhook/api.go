package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/joshSzep/charades/internal/observe"
)

// helloMessage is the greeting served at /api/hello.
const helloMessage = "Hello, welcome to AI Language Charades!"

// handleHello is a trivial liveness endpoint for manual smoke tests.
func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": helloMessage})
}

// playerCommand is the JSON body for the test harness endpoint.
type playerCommand struct {
	PhoneNumber string `json:"phone_number"`
	Command     string `json:"command"`
}

// commandReply is the JSON response from the test harness endpoint.
type commandReply struct {
	Reply string `json:"reply"`
}

// handleCommand runs a player command through the game loop without going
// through Twilio. Intended for local development and integration tests.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd playerCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if cmd.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}

	reply, err := s.orch.HandleMessage(r.Context(), cmd.PhoneNumber, cmd.Command)
	if err != nil {
		observe.Logger(r.Context()).ErrorContext(r.Context(), "command failed",
			"phone_number", cmd.PhoneNumber, "error", err)
		writeError(w, http.StatusBadRequest, "failed to process command")
		return
	}

	writeJSON(w, http.StatusOK, commandReply{Reply: reply})
}
