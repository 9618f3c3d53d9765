package console

import (
	"context"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"

	"github.com/osa030/autoskip/internal/app/command"
)

// ErrInterrupted is returned by LineReader.Run when the user presses Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

type lineSource interface {
	Readline() (string, error)
}

// LineReader reads command lines from the terminal with token completion.
type LineReader struct {
	rl  *readline.Instance
	src lineSource
}

// NewLineReader creates a line reader showing prompt.
func NewLineReader(prompt string) (*LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize readline")
	}
	return &LineReader{rl: rl, src: rl}, nil
}

// completer completes every command token, also after earlier tokens on the
// same line.
func completer() *readline.PrefixCompleter {
	tokens := command.Tokens()

	leaf := make([]readline.PrefixCompleterInterface, 0, len(tokens))
	for _, tok := range tokens {
		leaf = append(leaf, readline.PcItem(tok))
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(tokens))
	for _, tok := range tokens {
		items = append(items, readline.PcItem(tok, leaf...))
	}
	return readline.NewPrefixCompleter(items...)
}

// Stdout returns a writer that keeps the prompt intact while printing.
func (r *LineReader) Stdout() io.Writer {
	return r.rl.Stdout()
}

// Close restores the terminal and unblocks a pending read.
func (r *LineReader) Close() error {
	return r.rl.Close()
}

// Run sends every non-blank line to out until input ends, ctx is done or the
// user interrupts. out is closed on return.
func (r *LineReader) Run(ctx context.Context, out chan<- string) error {
	return pump(ctx, r.src, out)
}

func pump(ctx context.Context, src lineSource, out chan<- string) error {
	defer close(out)

	for {
		line, err := src.Readline()
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			return ErrInterrupted
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return errors.Wrap(err, "failed to read line")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		select {
		case out <- line:
		case <-ctx.Done():
			return nil
		}
	}
}
