// Package terminal provides the interactive CLI surface: a REPL over the
// controller and the operator confirmation gate for high-risk tools.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/travofoz/T-5000/agent"
)

// Terminal drives an interactive session against one top-level agent,
// usually the controller.
type Terminal struct {
	agent  runner
	in     io.Reader
	out    io.Writer
	prompt string
}

// runner is the slice of the agent surface the REPL needs.
type runner interface {
	Run(ctx context.Context, prompt string, loadState, saveState bool) string
}

// New creates a Terminal reading stdin and writing stdout.
func New(a *agent.Controller) *Terminal {
	return &Terminal{agent: a, in: os.Stdin, out: os.Stdout, prompt: "You: "}
}

// Run starts the REPL. An optional initial prompt runs before the first
// read; EOF or /quit ends the session.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		t.processTurn(ctx, initialPrompt)
	}

	scanner := bufio.NewScanner(t.in)
	for {
		fmt.Fprint(t.out, t.prompt)
		if !scanner.Scan() {
			break
		}
		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}
		if userInput == "/quit" || userInput == "/exit" {
			break
		}
		t.processTurn(ctx, userInput)
	}
	return scanner.Err()
}

func (t *Terminal) processTurn(ctx context.Context, userInput string) {
	final := t.agent.Run(ctx, userInput, true, true)
	fmt.Fprintf(t.out, "\n%s\n\n", final)
}

// Confirmer implements the interactive gate: yes proceeds, no declines,
// anything else re-prompts, end of input declines.
type Confirmer struct {
	in  io.Reader
	out io.Writer
}

// NewConfirmer creates a Confirmer on stdin/stdout.
func NewConfirmer() *Confirmer {
	return &Confirmer{in: os.Stdin, out: os.Stdout}
}

func (c *Confirmer) Confirm(toolName string, args map[string]interface{}) bool {
	fmt.Fprintf(c.out, "\nAgent wants to run high-risk tool '%s' with args: %v\n", toolName, args)
	reader := bufio.NewReader(c.in)
	for {
		fmt.Fprint(c.out, "Allow execution? (yes/no): ")
		line, err := reader.ReadString('\n')
		answer := strings.TrimSpace(strings.ToLower(line))
		switch answer {
		case "yes", "y":
			return true
		case "no", "n":
			return false
		}
		if err != nil {
			// EOF is an implicit decline.
			return false
		}
	}
}
