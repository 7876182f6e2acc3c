// Package workflow advances queue items through the processing stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (transcribe+score, download, render,
// publish) while capturing progress and failure metadata. Videos are
// processed strictly one at a time: the platform's anti-abuse heuristics
// penalize parallel uploads from one credential set, so concurrency is
// replaced with explicit pacing between channel uploads, between clips, and
// between videos.
//
// When an item reaches a terminal-success status (completed, no candidates,
// or abandoned) the manager cleans up its working files and then, as the
// last operation of the per-video flow, records the video in the persistent
// processed set. A crash mid-video therefore never marks that video
// processed.
package workflow
