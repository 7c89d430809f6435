// Package ui formats quotesync's terminal output.
package ui

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/rcliao/quotesync/internal/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()

	// Bold emphasizes labels.
	Bold = color.New(color.Bold).SprintFunc()
	// Dim renders ids and categories.
	Dim = color.New(color.Faint).SprintFunc()
)

func status(paint func(a ...interface{}) string, symbol, msg string) string {
	if msg == "" {
		return paint(symbol)
	}
	return paint(symbol) + " " + msg
}

// StatusSuccess prefixes msg with a green check mark.
func StatusSuccess(msg string) string { return status(green, "✓", msg) }

// StatusError prefixes msg with a red cross.
func StatusError(msg string) string { return status(red, "✗", msg) }

// StatusWarning prefixes msg with a yellow warning sign.
func StatusWarning(msg string) string { return status(yellow, "⚠", msg) }

// Quote renders q as "text" — [category], with the text left unescaped.
func Quote(q model.Quote) string {
	return fmt.Sprintf("\"%s\" — [%s]", q.Text, Dim(q.Category))
}

// Origin renders remote quotes in cyan and local ones in green.
func Origin(o model.Origin) string {
	if o == model.OriginRemote {
		return cyan(string(o))
	}
	return green(string(o))
}

// DisableColors turns colored output off and returns a func that restores
// the previous setting.
func DisableColors() (restore func()) {
	prev := color.NoColor
	color.NoColor = true
	return func() { color.NoColor = prev }
}
