// Package logging provides structured logging utilities for kubexec.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package
// with a colorized tint handler for terminal output.
//
// Create a logger and attach standard attributes:
//
//	logger := logging.NewLogger(os.Stderr, logging.LevelDebug)
//	logger = logging.WithOperation(logger, "job.create")
//	logger.Info("creating job",
//	    logging.Namespace("default"),
//	    logging.Job("kubexec-job-1712000000-ab12cd"))
package logging
