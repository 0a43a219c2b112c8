// Package stubapi is an in-process inventory API used by tests, the load-test
// CLI and the example. It issues short-lived HS256 access tokens and rotating
// refresh tokens, both as JSON and as cookies, and answers with the 401 bodies
// the client classifies:
//
//   - {"message":"Invalid credentials"}: wrong login
//   - {"message":"Session expired"}: missing, expired or revoked access token
//   - {"message":"Refresh token invalid"}: unknown or stale refresh token
//
// ExpireAccess, SetRefreshFailure and SetRefreshDelay drive the refresh paths
// on demand.
package stubapi
