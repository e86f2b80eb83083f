package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// Output receives every operator-facing message. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

var (
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	blue   = color.New(color.FgBlue)
	cyan   = color.New(color.FgCyan)
)

// PrintBanner prints the program name in large letters.
func PrintBanner(name string) {
	cyan.Fprintln(Output, figure.NewFigure(name, "small", true).String())
}

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	yellow.Fprintf(Output, "Warning: %s\n", message)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	red.Fprintf(Output, "Error: %s\n", message)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	green.Fprintln(Output, message)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	blue.Fprintln(Output, message)
}

// Println prints an uncolored line.
func Println(a ...interface{}) {
	fmt.Fprintln(Output, a...)
}

// Printf prints an uncolored formatted message.
func Printf(format string, a ...interface{}) {
	fmt.Fprintf(Output, format, a...)
}
