// Package confirm asks the operator before anything is destroyed.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter returns the operator's yes/no decision.
type Prompter interface {
	Confirm(prompt string) (bool, error)
}

// Terminal prompts on Out and reads a single line from In.
// Only "y" or "yes" (any case) accepts; EOF declines.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

func (t Terminal) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(t.Out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(t.In).ReadString('\n')
	fmt.Fprintln(t.Out)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Static always answers the same way and remembers the prompts it saw.
type Static struct {
	Answer  bool
	Prompts []string
}

func (s *Static) Confirm(prompt string) (bool, error) {
	s.Prompts = append(s.Prompts, prompt)
	return s.Answer, nil
}
