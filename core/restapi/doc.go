// Package restapi is the JSON-over-HTTP transport shared by the Coda and Google Sheets
// clients.
//
// A Client sends one request per call and decodes the JSON response. Non-2xx responses
// become *APIError values that unwrap to sentinel errors:
//   - 401 to ErrUnauthorized (missing, invalid or expired credentials)
//   - 403 to reconcile.ErrPermissionDenied
//   - 404 to ErrNotFound
//
// Status 429 is retried with exponential backoff for every method because the request
// was rejected before being applied. 5xx responses are retried only for GET, so a write
// that may have been applied is never sent twice.
//
// Credentials come from an oauth2.TokenSource, which refreshes expiring tokens.
package restapi
