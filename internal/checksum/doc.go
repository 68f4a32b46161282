// Package checksum computes digests of files on disk and compares them with
// the trusted digests published by the release store.
//
// Files are hashed in fixed-size chunks so peak memory stays flat for large
// archives. Comparison is an exact, case-sensitive string match.
package checksum
