// Package logging provides the leveled printf-style logger used throughout
// echo-viewer.
//
// Levels are DEBUG, INFO, WARN and ERROR; FATAL always prints and exits.
// The level is read once from DEBUG (any truthy value selects debug) or
// LOG_LEVEL, and may be overridden with SetLevel.
package logging
