// go-rc522
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-rc522.
//
// go-rc522 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-rc522 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-rc522; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package keypad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
)

// CommandFunc handles a typed line that is not keypad input. Returning
// false ends the session.
type CommandFunc func(fields []string) bool

// TerminalSource reads keypad presses from an interactive terminal. A line
// of keypad characters such as "1234#" becomes one event per character;
// anything else goes to the command handler.
type TerminalSource struct {
	rl      *readline.Instance
	command CommandFunc
	logger  *zap.Logger
}

// NewTerminalSource opens a readline session with the given prompt
func NewTerminalSource(prompt string, command CommandFunc, logger *zap.Logger) (*TerminalSource, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TerminalSource{rl: rl, command: command, logger: logger}, nil
}

// Stdout is a writer that does not garble the prompt
func (t *TerminalSource) Stdout() io.Writer {
	return t.rl.Stdout()
}

// Close ends the session
func (t *TerminalSource) Close() error {
	return t.rl.Close()
}

// Events implements Source. The channel closes on EOF, when a command asks
// to quit or when ctx ends.
func (t *TerminalSource) Events(ctx context.Context) <-chan Key {
	out := make(chan Key)
	go func() {
		<-ctx.Done()
		_ = t.rl.Close()
	}()
	go func() {
		defer close(out)
		for {
			line, err := t.rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != nil {
				return
			}
			if !t.dispatch(ctx, line, out) {
				return
			}
		}
	}()
	return out
}

func (t *TerminalSource) dispatch(ctx context.Context, line string, out chan<- Key) bool {
	if keys, ok := ParseKeys(line); ok {
		for _, k := range keys {
			select {
			case out <- k:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	if t.command == nil {
		t.logger.Warn("not keypad input", zap.String("line", line))
		return true
	}
	return t.command(fields)
}

var _ Source = (*TerminalSource)(nil)
