// Package crypto provides the primitive identity and reference types used
// throughout the dungeon generation protocol: actor addresses, opaque
// ciphertext handles, and the snapshot digest that binds a decryption request
// to the accumulator state it was issued against.
//
// No homomorphic operations live here; those are consumed as an external
// capability through the fhe package.
package crypto
