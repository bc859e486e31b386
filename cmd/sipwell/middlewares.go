package main

import (
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// the CLI prints results on stdout, logs go to stderr
var jsonLogger *slog.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

func init() {
	logLevel.Set(slog.LevelWarn)
}
