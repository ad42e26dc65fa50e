package console

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

// Confirm asks a yes/no question. Anything but an explicit yes is a no.
func Confirm(question string) (bool, error) {
	rl, err := readline.New(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	defer rl.Close()
	answer, err := rl.Readline()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(answer)) == Yes, nil
}

// Shell is a line-oriented prompt with history and command completion.
type Shell struct {
	rl *readline.Instance
}

func NewShell(prompt string, commands ...string) (*Shell, error) {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Shell{rl: rl}, nil
}

// Next returns the next command split into fields. io.EOF is returned when
// the operator closes the input or interrupts an empty line.
func (s *Shell) Next() ([]string, error) {
	for {
		line, err := s.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil, io.EOF
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			return fields, nil
		}
	}
}

func (s *Shell) Close() error {
	return s.rl.Close()
}
