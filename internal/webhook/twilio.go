package webhook

import (
	"net/http"
	"time"

	"github.com/twilio/twilio-go/twiml"

	"github.com/joshSzep/charades/internal/game"
	"github.com/joshSzep/charades/internal/observe"
)

// incomingMessage is the subset of Twilio's SMS webhook form fields the
// game needs. Twilio posts many more; unknown fields are ignored.
type incomingMessage struct {
	MessageSid string
	AccountSid string
	From       string
	To         string
	Body       string
	NumMedia   string
}

// parseIncomingMessage decodes and validates the SMS webhook form.
func parseIncomingMessage(r *http.Request) (incomingMessage, string) {
	if err := r.ParseForm(); err != nil {
		return incomingMessage{}, "malformed form body"
	}
	msg := incomingMessage{
		MessageSid: r.PostFormValue("MessageSid"),
		AccountSid: r.PostFormValue("AccountSid"),
		From:       r.PostFormValue("From"),
		To:         r.PostFormValue("To"),
		Body:       r.PostFormValue("Body"),
		NumMedia:   r.PostFormValue("NumMedia"),
	}
	switch {
	case msg.MessageSid == "":
		return msg, "MessageSid is required"
	case msg.AccountSid == "":
		return msg, "AccountSid is required"
	case msg.From == "":
		return msg, "From is required"
	case msg.To == "":
		return msg, "To is required"
	}
	return msg, ""
}

// handleIncomingMessage handles incoming SMS messages from Twilio and
// replies with TwiML carrying the game's response.
func (s *Server) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	msg, problem := parseIncomingMessage(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	log := observe.Logger(ctx).With(
		"message_sid", msg.MessageSid,
		"from", msg.From,
	)
	log.InfoContext(ctx, "incoming message")
	if msg.NumMedia != "" && msg.NumMedia != "0" {
		// The game is text-only; attachments are dropped.
		log.DebugContext(ctx, "ignoring media attachments", "num_media", msg.NumMedia)
	}

	reply, err := s.orch.HandleMessage(ctx, msg.From, msg.Body)
	s.metrics.WebhookDuration.Record(ctx, time.Since(start).Seconds(),
		observe.MetricAttrs("channel", "sms"))
	if err != nil {
		log.ErrorContext(ctx, "message handling failed", "error", err)
		writeError(w, http.StatusBadRequest, game.Message(game.MsgErrorGeneric))
		return
	}
	s.writeMessagingTwiML(w, reply)
}

// incomingVoice is the subset of Twilio's voice webhook form fields the
// game needs.
type incomingVoice struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	CallStatus   string
	SpeechResult string
	Confidence   string
}

// parseIncomingVoice decodes and validates the voice webhook form.
func parseIncomingVoice(r *http.Request) (incomingVoice, string) {
	if err := r.ParseForm(); err != nil {
		return incomingVoice{}, "malformed form body"
	}
	call := incomingVoice{
		CallSid:      r.PostFormValue("CallSid"),
		AccountSid:   r.PostFormValue("AccountSid"),
		From:         r.PostFormValue("From"),
		To:           r.PostFormValue("To"),
		CallStatus:   r.PostFormValue("CallStatus"),
		SpeechResult: r.PostFormValue("SpeechResult"),
		Confidence:   r.PostFormValue("Confidence"),
	}
	switch {
	case call.CallSid == "":
		return call, "CallSid is required"
	case call.From == "":
		return call, "From is required"
	}
	return call, ""
}

// handleIncomingVoice handles voice calls. The first request of a call has
// no SpeechResult and gets a greeting; subsequent requests carry the
// caller's transcribed speech, which runs through the same game loop as SMS.
// Every response ends with a speech Gather so the call keeps going until
// the caller hangs up.
func (s *Server) handleIncomingVoice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	call, problem := parseIncomingVoice(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	log := observe.Logger(ctx).With(
		"call_sid", call.CallSid,
		"from", call.From,
	)

	var say string
	if call.SpeechResult == "" {
		log.InfoContext(ctx, "incoming call")
		say = "Welcome to LangGang Charades! Say langgang to join, or say a language like Korean to play."
	} else {
		log.InfoContext(ctx, "incoming speech",
			"speech_result", call.SpeechResult, "confidence", call.Confidence)
		reply, err := s.orch.HandleSpeech(ctx, call.From, call.SpeechResult)
		if err != nil {
			// Keep the call alive with a spoken apology rather than letting
			// Twilio play its default error message.
			log.ErrorContext(ctx, "speech handling failed", "error", err)
			reply = game.ForVoice(game.Message(game.MsgErrorGeneric))
		}
		say = reply
	}

	s.metrics.WebhookDuration.Record(ctx, time.Since(start).Seconds(),
		observe.MetricAttrs("channel", "voice"))
	s.writeVoiceTwiML(w, say)
}

// handleMessageStatus handles message delivery status callbacks. Statuses
// are logged for operational visibility; failed deliveries are not retried.
func (s *Server) handleMessageStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}

	sid := r.PostFormValue("MessageSid")
	status := r.PostFormValue("MessageStatus")
	if sid == "" || status == "" {
		writeError(w, http.StatusBadRequest, "MessageSid and MessageStatus are required")
		return
	}

	log := observe.Logger(r.Context()).With(
		"message_sid", sid,
		"status", status,
	)
	if code := r.PostFormValue("ErrorCode"); code != "" {
		log.WarnContext(r.Context(), "message delivery failed",
			"error_code", code,
			"error_message", r.PostFormValue("ErrorMessage"),
		)
	} else {
		log.InfoContext(r.Context(), "message status update")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// writeMessagingTwiML renders a messaging response with a single Message
// verb.
func (s *Server) writeMessagingTwiML(w http.ResponseWriter, body string) {
	doc, err := twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: body},
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render response")
		return
	}
	writeTwiML(w, doc)
}

// writeVoiceTwiML renders a voice response: say the text, then gather the
// caller's next utterance and post it back to the voice webhook.
func (s *Server) writeVoiceTwiML(w http.ResponseWriter, say string) {
	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        s.publicURL + "/webhooks/twilio/voice",
		Method:        "POST",
		SpeechTimeout: "auto",
	}
	doc, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: say},
		gather,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render response")
		return
	}
	writeTwiML(w, doc)
}

func writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
