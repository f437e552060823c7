// Package coda is a small client for the Coda REST API and an adapter exposing a
// Coda table as a reconcile source or target.
//
// Rows are listed in natural order with column names as value keys, following page
// tokens until the table is exhausted. Writes are asynchronous on the Coda side: a
// successful insert returns the ids of the added rows, but the rows only show up in
// list calls after the mutation has been applied.
//
// Requests go through core/restapi: 403 unwraps to reconcile.ErrPermissionDenied,
// 401 to restapi.ErrUnauthorized and 404 to ErrNotFound. Status 429 is retried with
// exponential backoff, and 5xx only for reads. Batched inserts and deletes that fail
// part way report the rows already sent as a *reconcile.PartialWriteError.
package coda
