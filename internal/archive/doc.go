// Package archive pulls a single executable out of a release archive.
//
// Non-Windows releases are gzip-compressed tar files; Windows releases are zip
// files. Only the one named member is materialised; everything else in the
// archive is ignored. The destination is written atomically with mode 0755.
package archive
