// Package auth handles the operator's bearer token on the client side.
//
// The console authenticates every backend call with the token issued at
// login. This package locates that token (environment variable first, then
// a token file) and, when it is a JWT, reads its claims without verifying
// the signature:
//
//	tok := auth.LoadToken("MAIL_ASSISTANT_TOKEN", auth.DefaultTokenPath("mail-assistant"))
//	if err := tok.Check(time.Now()); err != nil {
//	    // session is over: the backend would answer 401 anyway
//	}
//
// Opaque (non-JWT) tokens are passed through unchanged and never reported
// as expired.
package auth
