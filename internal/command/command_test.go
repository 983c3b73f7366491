package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Command
	}{
		{"bare prefix shows help", "!topics", Command{Kind: KindHelp}},
		{"help", "!topics help", Command{Kind: KindHelp}},
		{"init without capacity", "!topics init", Command{Kind: KindInit}},
		{"init with capacity", "!topics init 5", Command{Kind: KindInit, Capacity: 5}},
		{"add", "!topics add 🎯 quarterly goals", Command{Kind: KindAdd, Emoji: "🎯", Text: "quarterly goals"}},
		{"remove", "!topics remove 🎯", Command{Kind: KindRemove, Emoji: "🎯"}},
		{"welcome", "!topics welcome Hello there, team", Command{Kind: KindWelcome, Text: "Hello there, team"}},
		{"list", "!topics list", Command{Kind: KindList}},
		{"reset", "!topics reset", Command{Kind: KindReset}},
		{"surrounding whitespace", "  !topics list  ", Command{Kind: KindList}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_NotCommand(t *testing.T) {
	for _, input := range []string{"hello", "", "!topicsinit", "topics list", "! topics list"} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrNotCommand, "input %q", input)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"init with junk capacity", "!topics init lots", "capacity must be a positive number"},
		{"init with zero capacity", "!topics init 0", "capacity must be a positive number"},
		{"add without text", "!topics add 🎯", "usage: !topics add"},
		{"add without anything", "!topics add", "usage: !topics add"},
		{"remove without emoji", "!topics remove", "usage: !topics remove"},
		{"remove with extra words", "!topics remove 🎯 please", "usage: !topics remove"},
		{"welcome without text", "!topics welcome", "usage: !topics welcome"},
		{"unknown verb", "!topics destroy", `unknown command "destroy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotCommand)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
