// Package logx is a thin structured-logging layer over zerolog.
//
// Loggers derived from a Service follow its sinks when the config is
// reloaded. Console output uses a short timestamp and a file:line caller,
// file output is JSON lines.
package logx
