// Package queue persists pipeline items in SQLite. Each item tracks one
// source video from discovery through transcript scoring, download, clip
// rendering, and multi-channel publishing.
package queue
