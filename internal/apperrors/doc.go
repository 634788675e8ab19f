// Package apperrors defines the error taxonomy shared by the gallery core.
//
// Every failure surfaced by the sandbox, indexer, codec, transform and
// gallery packages is an *Error tagged with a Kind. Callers match kinds with
// errors.Is against the exported sentinels:
//
//	if errors.Is(err, apperrors.ErrPathEscape) {
//	    // reject with 403
//	}
//
// PublicMessage never includes absolute filesystem paths.
package apperrors
