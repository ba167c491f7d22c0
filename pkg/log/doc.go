// Package log is the structured logging facade used across eventual.
//
// # Overview
//
// Components receive a Logger and attach typed fields:
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.WithComponent("tcp")
//	l.Info("listening", log.Str("addr", "localhost:4455"))
//
// Records are routed through a log/slog handler into the formatter and outputs
// pipeline, so the slog ecosystem can be adopted without changing output.
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level and text/json
// format). RedirectStdLog sends output of the standard library log package
// (used by Pebble and net/http) through a Logger.
package log
