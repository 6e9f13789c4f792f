package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command with its handler and menu metadata.
// AdminOnly commands are hidden from the menu and gated by admin id;
// Aliases are plain-text words that also trigger the command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Problem returns why cmd cannot be registered under name, or "" when it can.
func (cmd Command) Problem(name string) string {
	switch {
	case name == "" || cmd.Handler == nil:
		return "invalid"
	case strings.TrimSpace(cmd.Description) == "":
		return "no_description"
	case name[0] != '/':
		return "no_slash_prefix"
	case strings.ContainsAny(name, " \t\n"):
		return "whitespace_in_name"
	}
	return ""
}

// Visible reports whether the command belongs in the public command menu.
func (cmd Command) Visible() bool {
	return !cmd.Hidden && !cmd.AdminOnly
}
