// Package provision makes the release executable available in the local cache.
//
// A Provisioner walks a small state machine:
//
//	NotResolved -> CacheHit
//	NotResolved -> Downloading -> Verifying -> Extracting -> Ready
//	any         -> Failed
//
// A cached executable is trusted as is. On a miss the cache directory is
// locked, the archive and its checksum file are fetched concurrently, the
// archive is verified and the executable is unpacked next to it.
package provision
