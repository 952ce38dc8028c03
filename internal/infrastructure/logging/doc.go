// Package logging provides structured logging for Homepanel Core.
//
// It wraps log/slog so every component logs with the same handler, level
// filtering, and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device toggled", "house", house, "device_id", id)
//
// Never log password hashes, JWTs, or WebSocket tickets.
package logging
