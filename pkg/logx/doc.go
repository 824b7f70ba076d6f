// Package logx provides structured logging for wodbot.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - a zero-value-safe logger (components can log before wiring),
//   - short file:line callers instead of full paths,
//   - console and JSON-file sinks behind one Config.
package logx
