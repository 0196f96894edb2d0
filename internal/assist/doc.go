// Package assist integrates the optional companion assist service for
// device setup guidance and voice command interpretation.
//
// The service is advisory only: every call degrades gracefully to an
// empty result or a local keyword fallback when the service is absent.
package assist
