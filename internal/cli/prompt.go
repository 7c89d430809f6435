package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rcliao/quotesync/internal/model"
	"github.com/rcliao/quotesync/internal/reconcile"
	"github.com/rcliao/quotesync/internal/ui"
)

// ConflictPrompt asks the user to choose a side for each pending conflict.
type ConflictPrompt struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewConflictPrompt creates a prompt reading answers from in.
func NewConflictPrompt(in io.Reader, out io.Writer) *ConflictPrompt {
	return &ConflictPrompt{reader: bufio.NewReader(in), out: out}
}

// Resolve walks the engine's pending conflicts in order and records each
// answer with SetResolution. Nothing is applied.
func (p *ConflictPrompt) Resolve(e *reconcile.Engine) error {
	conflicts := e.Conflicts()
	if len(conflicts) == 0 {
		fmt.Fprintln(p.out, "No conflicts to resolve.")
		return nil
	}

	fmt.Fprintf(p.out, "\n=== Conflict Resolution ===\n")
	fmt.Fprintf(p.out, "Found %d conflict(s). The server version is applied unless you keep the local one.\n\n", len(conflicts))

	for i, c := range conflicts {
		fmt.Fprintf(p.out, "--- Conflict %d of %d (remote id: %s) ---\n", i+1, len(conflicts), remoteLabel(c))
		p.showSide("Local ", c.Local)
		p.showSide("Server", c.Remote)

		choice, err := p.ask(c)
		if err != nil {
			return fmt.Errorf("conflict %d: %w", i+1, err)
		}
		if err := e.SetResolution(i, choice); err != nil {
			return err
		}
		fmt.Fprintf(p.out, "%s\n\n", ui.StatusSuccess("Keeping "+string(choice)))
	}
	return nil
}

func remoteLabel(c model.Conflict) string {
	if c.Remote.RemoteID != "" {
		return c.Remote.RemoteID
	}
	return "n/a"
}

func (p *ConflictPrompt) showSide(label string, q model.Quote) {
	fmt.Fprintf(p.out, "  %s %s\n", ui.Bold(label), ui.Quote(q))
}

func (p *ConflictPrompt) showDetails(c model.Conflict) {
	for _, side := range []struct {
		label string
		q     model.Quote
	}{{"LOCAL", c.Local}, {"SERVER", c.Remote}} {
		fmt.Fprintf(p.out, "\n=== %s ===\n", side.label)
		fmt.Fprintln(p.out, strings.Repeat("-", 50))
		fmt.Fprintf(p.out, "text:      %s\n", side.q.Text)
		fmt.Fprintf(p.out, "category:  %s\n", side.q.Category)
		fmt.Fprintf(p.out, "updatedAt: %s\n", side.q.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(p.out, strings.Repeat("-", 50))
	}
}

// ask reads answers until one is valid. An empty answer or end of input
// keeps the server version.
func (p *ConflictPrompt) ask(c model.Conflict) (model.Resolution, error) {
	for {
		fmt.Fprint(p.out, "Keep [s]erver, [l]ocal, or show [d]etails? [s]: ")

		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "s", "server":
			return model.ResolutionServer, nil
		case "l", "local":
			return model.ResolutionLocal, nil
		case "d", "details":
			p.showDetails(c)
		default:
			fmt.Fprintln(p.out, "Invalid choice.")
		}

		if err == io.EOF {
			return model.ResolutionServer, nil
		}
	}
}
