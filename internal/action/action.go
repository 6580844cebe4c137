// Package action maps an understood command onto the front-end action an
// assistant would perform. It decides only; callers carry the action out.
package action

import "strings"

// Kind is the family of an action.
type Kind string

const (
	None         Kind = "none"
	Exit         Kind = "exit"
	PlaySong     Kind = "play_song"
	ScreenRecord Kind = "screen_record"
	Screenshot   Kind = "screenshot"
	Time         Kind = "time"
	Search       Kind = "search"
	System       Kind = "system"
	App          Kind = "app"
	Media        Kind = "media"
	Settings     Kind = "settings"
)

// Search engines, carried in Action.Verb for Kind Search.
const (
	EngineWeb       = "web"
	EngineYouTube   = "youtube"
	EngineWikipedia = "wikipedia"
)

// Action is a routing decision. Verb narrows the kind (for example
// "shutdown", "volume_up" or a search engine); Target is the object of the
// verb, if any.
type Action struct {
	Kind   Kind   `json:"kind"`
	Verb   string `json:"verb,omitempty"`
	Target string `json:"target,omitempty"`
}

// Classify routes a command by keyword containment. Checks run in a fixed
// priority order and the first family that matches wins.
func Classify(command string) Action {
	c := strings.ToLower(strings.TrimSpace(command))

	switch {
	case c == "":
		return Action{Kind: None}
	case containsAny(c, "exit", "quit", "goodbye", "bye"):
		return Action{Kind: Exit}
	case containsAny(c, "play song", "play music", "music on youtube"),
		strings.Contains(c, "play") && strings.Contains(c, "on youtube"):
		return Action{Kind: PlaySong, Target: strip(c, "play song", "play music", "music on youtube", "on youtube", "play", "song")}
	case strings.Contains(c, "screen record"):
		return Action{Kind: ScreenRecord}
	case containsAny(c, "screenshot", "take a picture", "capture screen"):
		return Action{Kind: Screenshot}
	case strings.Contains(c, "time"):
		return Action{Kind: Time}
	case strings.Contains(c, "search") && strings.Contains(c, "youtube"):
		return Action{Kind: Search, Verb: EngineYouTube,
			Target: strip(c, "search in youtube", "youtube search", "on youtube", "in youtube", "search", "youtube")}
	case strings.Contains(c, "search") && containsAny(c, "google", "web"):
		return Action{Kind: Search, Verb: EngineWeb,
			Target: strip(c, "search in google", "google search", "on google", "in google", "on the web", "search", "google", "web")}
	case containsAny(c, "wikipedia", "who is", "what is"):
		return Action{Kind: Search, Verb: EngineWikipedia,
			Target: strip(c, "wikipedia", "who is", "what is", "tell me about")}
	case containsAny(c, "restart", "shutdown", "refresh"):
		return Action{Kind: System, Verb: firstOf(c, "restart", "shutdown", "refresh")}
	case containsAny(c, "open", "close"):
		return app(c)
	case containsAny(c, "pause", "play", "next", "previous", "volume", "mute"):
		return Action{Kind: Media, Verb: mediaVerb(c)}
	case containsAny(c, "bluetooth", "wifi"):
		return Action{Kind: Settings, Verb: firstOf(c, "bluetooth", "wifi")}
	}
	return Action{Kind: None}
}

func app(c string) Action {
	if strings.Contains(c, "open") {
		return Action{Kind: App, Verb: "open", Target: strip(c, "open")}
	}
	if strings.Contains(c, "close youtube") {
		return Action{Kind: App, Verb: "close", Target: "youtube"}
	}
	return Action{Kind: App, Verb: "close", Target: strip(c, "close")}
}

// mediaVerb names the media key for c. A bare "volume" without a direction
// is reported as "volume".
func mediaVerb(c string) string {
	switch {
	case containsAny(c, "pause", "play"):
		return "playpause"
	case strings.Contains(c, "next"):
		return "next"
	case strings.Contains(c, "previous"):
		return "previous"
	case strings.Contains(c, "volume up"):
		return "volume_up"
	case strings.Contains(c, "volume down"):
		return "volume_down"
	case strings.Contains(c, "mute"):
		return "mute"
	}
	return "volume"
}

// strip removes every marker from c, in order, and collapses the leftover
// whitespace.
func strip(c string, markers ...string) string {
	for _, m := range markers {
		c = strings.ReplaceAll(c, m, " ")
	}
	return strings.Join(strings.Fields(c), " ")
}

func containsAny(c string, words ...string) bool {
	return firstOf(c, words...) != ""
}

func firstOf(c string, words ...string) string {
	for _, w := range words {
		if strings.Contains(c, w) {
			return w
		}
	}
	return ""
}
