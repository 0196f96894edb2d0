// Package logging provides structured logging for devicelink.
//
// It wraps the standard library's log/slog with configuration-driven
// format and level selection, and stamps every record with the service
// name and build version.
//
// Components should accept their own narrow Logger interface (Debug,
// Info, Warn, Error) rather than depending on this package directly;
// *logging.Logger satisfies those interfaces through slog.
package logging
