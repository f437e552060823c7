// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: rejects requests without the configured X-API-Key header.
//   - rayid: assigns every request a ray id, stored in the context locals and echoed
//     in the X-Ray-ID response header.
//
// rayid is registered first so even rejected requests can be traced.
package middleware
