// Package watch turns filesystem notifications into change signals.
//
// A Watcher observes one directory without recursion and forwards
// modifications of matching files to a Signal. The spreadsheet watcher and
// the config hot-reload both run on it.
package watch
