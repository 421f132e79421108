package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/joshSzep/charades/pkg/provider/llm"
)

// jaroWinklerThreshold is the minimum similarity for a spoken phrase to be
// accepted as a language name. Tuned loosely: speech recognition output for
// single words is usually close, and a false positive only starts a game in
// the wrong language, which the player can restart.
const jaroWinklerThreshold = 0.88

// NormalizeSpeech cleans up a speech recognition transcript for routing.
// Recognizers tend to append sentence punctuation ("Korean." for "Korean"),
// which would otherwise break command and language matching. The original
// casing is preserved so descriptions pass through untouched.
func NormalizeSpeech(transcript string) string {
	s := strings.TrimSpace(transcript)
	s = strings.TrimRight(s, ".!?,;")
	return strings.TrimSpace(s)
}

// MatchLanguage resolves a spoken phrase to a language code. It accepts a
// literal two-letter code ("ko"), an exact display name ("Korean"), or a
// phonetically close rendering of one ("Corean"), comparing via Double
// Metaphone with a Jaro-Winkler fallback.
//
// Returns the lower-case code and true on a match.
func MatchLanguage(langs llm.Languages, spoken string) (string, bool) {
	phrase := strings.ToLower(strings.TrimSpace(spoken))
	if phrase == "" {
		return "", false
	}

	if isLanguageCode(phrase) {
		if _, ok := langs[strings.ToUpper(phrase)]; ok {
			return phrase, true
		}
	}

	for code, name := range langs {
		lname := strings.ToLower(name)
		if phrase == lname {
			return strings.ToLower(code), true
		}
		p1 := first(matchr.DoubleMetaphone(phrase))
		p2 := first(matchr.DoubleMetaphone(lname))
		if p1 != "" && p1 == p2 {
			return strings.ToLower(code), true
		}
		if matchr.JaroWinkler(phrase, lname, true) >= jaroWinklerThreshold {
			return strings.ToLower(code), true
		}
	}
	return "", false
}

// first returns its first argument; used to take the primary Double
// Metaphone encoding from the two-value return.
func first(primary, _ string) string {
	return primary
}

// HandleSpeech processes one voice transcript from phoneNumber and returns
// reply text fit for text-to-speech. Spoken language names ("Korean") are
// resolved to their codes when the player is idle, so the voice flow can
// start games without the player spelling out "K O".
func (o *Orchestrator) HandleSpeech(ctx context.Context, phoneNumber, transcript string) (string, error) {
	body := NormalizeSpeech(transcript)
	lower := strings.ToLower(body)

	if lower != "langgang" && lower != "optout" && lower != "stop" {
		player, _, err := o.store.GetOrCreatePlayer(ctx, phoneNumber)
		if err != nil {
			return "", fmt.Errorf("get or create player: %w", err)
		}
		if player.Active {
			session, err := o.store.ActiveSession(ctx, player.ID)
			if err != nil {
				return "", fmt.Errorf("look up active session: %w", err)
			}
			if session == nil {
				if code, ok := MatchLanguage(o.Languages(), body); ok {
					body = code
				}
			}
		}
	}

	reply, err := o.HandleMessage(ctx, phoneNumber, body)
	if err != nil {
		return "", err
	}
	return ForVoice(reply), nil
}

// ForVoice rewrites a reply template for text-to-speech: emojis are
// dropped, the "Score:" label and fraction are spoken as a sentence, and
// line breaks become sentence pauses.
func ForVoice(text string) string {
	s := strings.ReplaceAll(text, "🎮", "")
	s = strings.ReplaceAll(s, "Score: ", "You scored ")
	s = strings.ReplaceAll(s, "/100", " out of 100")
	s = strings.ReplaceAll(s, "\n", ". ")
	s = strings.Join(strings.Fields(s), " ")
	return s
}
