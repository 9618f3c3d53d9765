// Package command maps interactive command tokens to rule and settings changes.
package command

import "strings"

// Action is a recognized interactive command.
type Action int

const (
	ActionUnknown         Action = iota // Not a command
	ActionToggle                        // Flip auto-skip
	ActionSkip                          // Skip the current track
	ActionBlacklistSong                 // Toggle the current song on the blacklist
	ActionBlacklistArtist               // Toggle the current artist on the blacklist
	ActionWhitelistSong                 // Toggle the current song on the whitelist
	ActionWhitelistArtist               // Toggle the current artist on the whitelist
	ActionNotify                        // Flip desktop notifications
	ActionHelp                          // List commands
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionSkip:
		return "skip"
	case ActionBlacklistSong:
		return "blacklist_song"
	case ActionBlacklistArtist:
		return "blacklist_artist"
	case ActionWhitelistSong:
		return "whitelist_song"
	case ActionWhitelistArtist:
		return "whitelist_artist"
	case ActionNotify:
		return "notify"
	case ActionHelp:
		return "help"
	default:
		return "unknown"
	}
}

// TrackScoped reports whether the action needs a current track.
func (a Action) TrackScoped() bool {
	switch a {
	case ActionBlacklistSong, ActionBlacklistArtist, ActionWhitelistSong, ActionWhitelistArtist:
		return true
	default:
		return false
	}
}

// Info describes an action for the help listing.
type Info struct {
	Action      Action
	Tokens      []string
	Description string
}

// commands is the fixed command table, in help order.
var commands = []Info{
	{Action: ActionToggle, Tokens: []string{"t", "toggle"}, Description: "Toggle autoskip"},
	{Action: ActionSkip, Tokens: []string{"s", "skip"}, Description: "Skip the current song"},
	{Action: ActionBlacklistSong, Tokens: []string{"bls"}, Description: "Toggle blacklist for the current song"},
	{Action: ActionBlacklistArtist, Tokens: []string{"bla"}, Description: "Toggle blacklist for the current artist"},
	{Action: ActionWhitelistSong, Tokens: []string{"wls"}, Description: "Toggle whitelist for the current song"},
	{Action: ActionWhitelistArtist, Tokens: []string{"wla"}, Description: "Toggle whitelist for the current artist"},
	{Action: ActionNotify, Tokens: []string{"n", "notify"}, Description: "Toggle notifications"},
	{Action: ActionHelp, Tokens: []string{"h", "help"}, Description: "List commands"},
}

var byToken = func() map[string]Action {
	m := make(map[string]Action)
	for _, c := range commands {
		for _, tok := range c.Tokens {
			m[tok] = c.Action
		}
	}
	return m
}()

// Parse looks token up case-insensitively.
func Parse(token string) (Action, bool) {
	a, ok := byToken[strings.ToLower(token)]
	return a, ok
}

// Commands returns the command table.
func Commands() []Info {
	out := make([]Info, len(commands))
	copy(out, commands)
	return out
}

// Tokens returns every recognized token.
func Tokens() []string {
	var out []string
	for _, c := range commands {
		out = append(out, c.Tokens...)
	}
	return out
}
