// Package absence remembers which backend routes recently answered
// "route not found", so callers can serve a local fallback without
// re-probing an endpoint that is not deployed yet.
package absence
