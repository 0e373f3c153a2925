// Package fhe defines the external capability boundary of the protocol: the
// homomorphic encryption engine, the asynchronous decryption oracle, and the
// result proof verifier.
//
// The protocol core consumes these as interfaces and never reimplements
// them. InMemoryEngine and InMemoryOracle simulate the capabilities for
// tests and local deployments by keeping plaintexts behind opaque handles,
// the same way the hosting encryption network would hold them behind its
// key material. They provide no actual cryptographic security guarantees.
package fhe
