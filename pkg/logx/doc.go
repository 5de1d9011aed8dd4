// Package logx configures trainfeed's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Loggers injectable: components receive a Logger, there is no
//     package-level global
package logx
