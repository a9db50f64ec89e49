package main

import (
	"os"

	"ajiri/internal/pkg/logging"
)

func main() {
	logging.Init(os.Getenv("LOG_LEVEL"))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
