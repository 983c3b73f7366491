// Package command parses the "!topics" chat commands into typed requests.
// Parsing is deliberately separate from execution so the listener can reply
// to malformed input without touching the orchestrator.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prefix starts every board command.
const Prefix = "!topics"

// Kind identifies which operation a command requests.
type Kind string

const (
	KindInit    Kind = "init"
	KindAdd     Kind = "add"
	KindRemove  Kind = "remove"
	KindWelcome Kind = "welcome"
	KindList    Kind = "list"
	KindReset   Kind = "reset"
	KindHelp    Kind = "help"
)

// Command is a parsed board command.
type Command struct {
	Kind     Kind
	Emoji    string // add, remove
	Text     string // add topic text, welcome text
	Capacity int    // init; 0 means use the configured default
}

// ErrNotCommand marks messages that do not start with the command prefix.
// The listener treats those as foreign content rather than parse errors.
var ErrNotCommand = errors.New("not a board command")

// Parse turns a raw message body into a Command. Returns ErrNotCommand for
// messages without the prefix and a user-presentable error for malformed
// commands.
func Parse(body string) (Command, error) {
	body = strings.TrimSpace(body)
	if body != Prefix && !strings.HasPrefix(body, Prefix+" ") {
		return Command{}, ErrNotCommand
	}

	rest := strings.TrimSpace(strings.TrimPrefix(body, Prefix))
	if rest == "" {
		return Command{Kind: KindHelp}, nil
	}

	verb, args, _ := strings.Cut(rest, " ")
	args = strings.TrimSpace(args)

	switch verb {
	case "init":
		cmd := Command{Kind: KindInit}
		if args != "" {
			capacity, err := strconv.Atoi(args)
			if err != nil || capacity < 1 {
				return Command{}, fmt.Errorf("capacity must be a positive number, got %q", args)
			}
			cmd.Capacity = capacity
		}
		return cmd, nil

	case "add":
		emoji, text, _ := strings.Cut(args, " ")
		text = strings.TrimSpace(text)
		if emoji == "" || text == "" {
			return Command{}, fmt.Errorf("usage: %s add <emoji> <text>", Prefix)
		}
		return Command{Kind: KindAdd, Emoji: emoji, Text: text}, nil

	case "remove":
		if args == "" || strings.Contains(args, " ") {
			return Command{}, fmt.Errorf("usage: %s remove <emoji>", Prefix)
		}
		return Command{Kind: KindRemove, Emoji: args}, nil

	case "welcome":
		if args == "" {
			return Command{}, fmt.Errorf("usage: %s welcome <text>", Prefix)
		}
		return Command{Kind: KindWelcome, Text: args}, nil

	case "list":
		return Command{Kind: KindList}, nil

	case "reset":
		return Command{Kind: KindReset}, nil

	case "help":
		return Command{Kind: KindHelp}, nil

	default:
		return Command{}, fmt.Errorf("unknown command %q, try %s help", verb, Prefix)
	}
}
