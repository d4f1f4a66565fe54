// Package client is the sync engine's view of the remote API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface): Ping,
//     Apply (replay one pending operation) and Fetch (workspace snapshot).
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, injects the access token via an interceptor, and maps gRPC
//     status codes onto HTTP-style statuses wrapped in StatusError.
//
// # Error Handling
//
// Every remote failure is a *StatusError. It unwraps to a sentinel so callers
// can use errors.Is: ErrNotFound, ErrUnavailable, ErrUnauthorized,
// ErrConflict and common.ErrorValidation. Transient reports whether retrying
// the same call later may succeed.
package client
