package main

import (
	"github.com/j-stephan/ddafa/internal/cmd"
	"github.com/j-stephan/ddafa/internal/log"
)

func main() {
	defer cmd.RecoverFatal()

	if err := cmd.Execute(); err != nil {
		log.Base().WithError(err).Fatal("run failed")
	}
}
