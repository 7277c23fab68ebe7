// Package logging provides structured logging for the quorum harness.
//
// # Overview
//
// The package exposes a small Logger interface with key-value pairs:
//
//   - Four log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Field-based contextual logging and named sub-loggers
//
// Output is produced by hashicorp/go-hclog. The same hclog instance is
// handed to the raft engine through Hclog, so engine and harness messages
// share one sink and one level.
//
// # Creating a Logger
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/quorum/harness.log",
//	})
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Structured Logging
//
//	logger.Info("node started",
//	    "node", "node-2",
//	    "server", "127.0.0.1:9002",
//	)
//
// # Contextual Fields
//
//	nodeLogger := logger.Named("node").WithFields("id", spec.ID)
//	nodeLogger.Info("leader elected")
//
// # Output Destinations
//
//	logging.Config{Output: "stdout"}              // Standard output
//	logging.Config{Output: "stderr"}              // Standard error
//	logging.Config{Output: "/var/log/quorum.log"} // File path
package logging
