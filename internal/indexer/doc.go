// Package indexer lists gallery folders and images.
//
// Listings are computed from the filesystem on every call and never cached.
// Hidden entries (leading '.') are skipped, as are symlinks whose target lies
// outside the sandboxed base and entries that cannot be read. Results are
// sorted by name in byte order so repeated calls return identical slices.
//
// Each subfolder is summarized by a shallow scan of its own children:
// whether it holds images or subfolders, and its lexicographically first
// image as a thumbnail. Summaries run on a small worker pool sized by
// workers.ForIO.
package indexer
