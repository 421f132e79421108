package game

import "strings"

// Message template keys. Every player-facing reply renders from one of
// these, so copy changes live in one place.
const (
	MsgOptInSuccess    = "opt_in_success"
	MsgAlreadyOptedIn  = "already_opted_in"
	MsgOptOutSuccess   = "opt_out_success"
	MsgNotOptedIn      = "not_opted_in"
	MsgHowToPlay       = "how_to_play"
	MsgNewGame         = "new_game"
	MsgNoActiveGame    = "no_active_game"
	MsgGameComplete    = "game_complete"
	MsgInvalidLanguage = "invalid_language"
	MsgErrorGeneric    = "error_generic"
)

// messages holds the player-facing reply templates. Placeholders use
// {name} syntax and are expanded by [render].
var messages = map[string]string{
	MsgOptInSuccess: "Welcome to LangGang Charades! 🎮 You're now opted in. " +
		"To start playing, send a language code (e.g. 'en' for English or 'ko' for" +
		" Korean). You can opt out at any time by replying STOP.",
	MsgAlreadyOptedIn: "You're already opted in to LangGang Charades! " +
		"To play, send a language code (e.g. 'en' for English or 'ko' for Korean). " +
		"Or reply STOP to opt out.",
	MsgOptOutSuccess: "You've been successfully opted out of LangGang Charades. " +
		"Thanks for playing! Text LangGang to opt back in anytime.",
	MsgNotOptedIn: "You're not opted in to LangGang Charades yet. " +
		"Text LangGang to join the game!",
	MsgHowToPlay: "To play LangGang Charades, send a two-letter language code " +
		"(e.g. 'en' for English or 'ko' for Korean) and we'll send you a word to describe. " +
		"Reply STOP to opt out.",
	MsgNewGame: "New game started in {language}! 🎮 Your word is: {word}. " +
		"Describe it in your own words, without using the word itself!",
	MsgNoActiveGame: "You don't have an active game. " +
		"Send a language code (e.g. 'en' or 'ko') to start one!",
	MsgGameComplete: "Score: {score}/100\n{feedback}\n" +
		"Send a language code to play again!",
	MsgInvalidLanguage: "Sorry, that language isn't supported yet. " +
		"Try 'en' for English or 'ko' for Korean.",
	MsgErrorGeneric: "Sorry, something went wrong. Please try again later.",
}

// Message renders the template for key, expanding {placeholder} pairs from
// args in order (placeholder, value, placeholder, value, ...). Unknown keys
// render the generic error message so a template typo never reaches the
// player as an empty reply.
func Message(key string, args ...string) string {
	tmpl, ok := messages[key]
	if !ok {
		return messages[MsgErrorGeneric]
	}
	return render(tmpl, args...)
}

func render(tmpl string, args ...string) string {
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
