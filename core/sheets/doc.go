// Package sheets is a small client for the Google Sheets v4 REST API and an adapter
// exposing a worksheet as a reconcile source or target.
//
// A worksheet is read in one values call with unformatted values. Row 1 is the header;
// each later non-blank row is a record. Writes use RAW input so values are stored as
// sent. Deletes are issued bottom-up in one batchUpdate.
//
// Credentials come from a Google credentials file through golang.org/x/oauth2/google,
// or from a fixed access token. Status 403 unwraps to reconcile.ErrPermissionDenied,
// which makes a worksheet without edit rights fall back to full-rewrite syncs; 401 is
// restapi.ErrUnauthorized and fails the pass.
package sheets
