// Package tui renders long-running knowledge base tasks in the terminal.
//
// The progress view shows each pipeline phase, an overall progress bar and
// the latest detail line. It is used by compress, index and watch when
// stdout is a terminal; LineReporter covers pipes and logs.
package tui
