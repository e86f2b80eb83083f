package main

import (
	"context"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/charmbracelet/fang"
)

const version = "0.1.0"

func main() {
	godal.RegisterAll()

	root := newRootCmd(newPipeline())
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
