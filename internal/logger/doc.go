// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing to stderr with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - leveled key-value helpers (DebugKV, InfoKV, WarnKV, ErrorKV).
//
// Every stage of the launcher accepts a context and extracts the logger from
// it, so records carry the stage name and the artifact being handled.
package logger
