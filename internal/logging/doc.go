// Package logging provides the levelled logger used by cbird.
//
// Levels are DEBUG, INFO, WARN and ERROR, plus Fatal which exits. The level
// comes from DEBUG=true or LOG_LEVEL and can be overridden with SetLevel.
// Progress writes a single rewritable status line when stderr is a terminal.
package logging
