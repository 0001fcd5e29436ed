package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/harun/roundtable/pkg/meeting"
)

// ConsoleDecider puts meeting questions to a person at a terminal
type ConsoleDecider struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	styles styles
}

// NewConsoleDecider creates a decider reading answers from in
func NewConsoleDecider(in io.Reader, out io.Writer) *ConsoleDecider {
	return &ConsoleDecider{
		in:     bufio.NewReader(in),
		out:    out,
		styles: newStyles(),
	}
}

// Choose prints numbered choices and reads a number. 0 leaves the meeting.
func (d *ConsoleDecider) Choose(ctx context.Context, question string, choices []string) (string, error) {
	if len(choices) == 0 {
		return "", fmt.Errorf("no choices offered for %q", question)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fmt.Fprintln(d.out, d.styles.section.Render(d.styles.title.Render(question)))
		for i, choice := range choices {
			fmt.Fprintf(d.out, "  %d. %s\n", i+1, d.styles.choice.Render(choice))
		}
		fmt.Fprintf(d.out, "  0. %s\n", d.styles.empty.Render(meeting.Exit))
		fmt.Fprint(d.out, "> ")

		line, err := d.readLine()
		if err != nil {
			return "", err
		}

		n, err := strconv.Atoi(line)
		if err != nil || n < 0 || n > len(choices) {
			fmt.Fprintln(d.out, d.styles.warning.Render(fmt.Sprintf("Please enter a number between 0 and %d", len(choices))))
			continue
		}
		if n == 0 {
			return meeting.Exit, nil
		}
		return choices[n-1], nil
	}
}

// Ask reads one line of free text. Typing "exit" leaves the meeting.
func (d *ConsoleDecider) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintln(d.out, d.styles.section.Render(d.styles.title.Render(question)))
	fmt.Fprintln(d.out, d.styles.empty.Render("(press enter to skip, type exit to leave)"))
	fmt.Fprint(d.out, "> ")

	line, err := d.readLine()
	if err != nil {
		return "", err
	}
	if strings.EqualFold(line, "exit") {
		return meeting.Exit, nil
	}
	return line, nil
}

func (d *ConsoleDecider) readLine() (string, error) {
	line, err := d.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
