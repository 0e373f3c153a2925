// Package services exposes the protocol coordinator for deployment: an
// HTTP API for owners, providers, the oracle actor, and read-only
// collaborators, plus a persistence layer mirroring the decryption audit
// trail into memory or PostgreSQL.
//
// The coordinator's in-memory aggregate stays authoritative; the store is
// written behind it from the lifecycle event feed. HTTP callers are
// identified by the address they present; signature-based wallet
// authentication sits in front of this service and is out of scope here.
package services
