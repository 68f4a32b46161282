// Package release derives everything that can be known about a nonodo release
// without touching the network: archive and binary file names, the archive
// and checksum URLs, and the locations of those files in the cache directory.
package release
