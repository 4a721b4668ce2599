// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used on every Overlook
// wire surface: the surface message protocol and the engine control
// socket.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same logical value always produces identical bytes. Decoding
// ignores unknown fields for forward compatibility.
package codec
