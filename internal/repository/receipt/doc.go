// Package receipt implements persistence for install receipts.
//
// A receipt records which release was unpacked into the cache, its digest and
// who installed it. It is written as YAML next to the cached executable and is
// informational only: it never decides whether the cache is valid.
package receipt
