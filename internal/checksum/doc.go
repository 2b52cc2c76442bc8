// Package checksum hashes CSV sources while they stream into COPY and
// fingerprints column definitions for the catalog listing.
//
//   - Reader: wraps a source, counts bytes and computes SHA-256 on the fly
//   - Fingerprint: SHA-256 of a DDL fragment after normalization
//     (lower case, -- comments removed, whitespace collapsed), so reformatting
//     a catalog does not change the fingerprint
package checksum
