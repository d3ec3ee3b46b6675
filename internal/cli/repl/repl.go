package repl

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/yndnr/dsh-go/internal/core/domain"
)

// ExitCommand ends the relay.
const ExitCommand = "exit"

// Relay is a line-oriented input loop.
type Relay struct {
	input io.Reader
}

// NewRelay creates a relay reading from input.
func NewRelay(input io.Reader) *Relay {
	return &Relay{input: input}
}

// Run reads lines until "exit" or end of input and passes every other
// line, trimmed, to handle. A blank line is passed as "". An error from
// handle stops the loop and is returned as is. Read failures are returned
// as domain.ErrIO.
func (r *Relay) Run(handle func(line string) error) error {
	reader := bufio.NewReader(r.input)

	for {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return domain.ErrIO.WithDetails("read input").WithCause(err)
		}
		if err != nil && raw == "" {
			return nil
		}

		line := strings.TrimSpace(raw)
		if line == ExitCommand {
			return nil
		}
		if herr := handle(line); herr != nil {
			return herr
		}

		if err != nil {
			return nil
		}
	}
}
