// Package cli is the interactive chat loop.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/graph"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/history"
)

const (
	prompt  = "\nUser: "
	goodbye = "\nAssistant: Goodbye! Have a great day."
	lostMsg = "I'm sorry, I ran into a problem. Please try rephrasing your question."
)

// Runner answers one question.
type Runner interface {
	Run(ctx context.Context, question string) (graph.State, error)
}

// TurnLog records answered turns.
type TurnLog interface {
	Append(ctx context.Context, session string, t history.Turn) error
}

// LineReader reads one line of input after printing a prompt.
type LineReader interface {
	Prompt(p string) (string, error)
}

// Terminal is a LineReader with line editing and persistent history.
type Terminal struct {
	line        *liner.State
	historyFile string
}

func NewTerminal() *Terminal {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	t := &Terminal{line: line, historyFile: filepath.Join(dir, "travel-agent", "chat_history")}
	if f, err := os.Open(t.historyFile); err == nil {
		t.line.ReadHistory(f)
		f.Close()
	}
	return t
}

func (t *Terminal) Prompt(p string) (string, error) {
	input, err := t.line.Prompt(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		t.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (t *Terminal) Close() {
	if err := os.MkdirAll(filepath.Dir(t.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			t.line.WriteHistory(f)
			f.Close()
		}
	}
	t.line.Close()
}

// Chat runs the read, answer, print loop until an empty line, "exit" or "quit", or
// the end of input.
func Chat(ctx context.Context, in LineReader, out io.Writer, runner Runner, turns TurnLog, log *zap.Logger) error {
	session := uuid.NewString()
	fmt.Fprintln(out, "\n--- Vietnam Travel Assistant ---")
	fmt.Fprintln(out, "Ask me about hotels, cities, and activities in Vietnam.")
	fmt.Fprintln(out, "Type 'exit' or 'quit' to end the conversation.")
	fmt.Fprintln(out, "---------------------------------")

	for {
		input, err := in.Prompt(prompt)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
			return err
		}
		query := strings.TrimSpace(input)
		if err != nil || query == "" || strings.EqualFold(query, "exit") || strings.EqualFold(query, "quit") {
			fmt.Fprintln(out, goodbye)
			return nil
		}

		state, err := runner.Run(ctx, query)
		if err != nil {
			log.Error("error in workflow execution", zap.Error(err))
			fmt.Fprintf(out, "\nAssistant: [An error occurred: %v]\n%s\n", err, lostMsg)
			continue
		}
		fmt.Fprintf(out, "\nAssistant:\n%s\n", state.Answer())

		turn := history.Turn{Question: query, Route: string(state.Route()), Answer: state.Answer(), At: time.Now().UTC()}
		if err := turns.Append(ctx, session, turn); err != nil {
			log.Warn("failed to record turn", zap.Error(err))
		}
	}
}
