// Package broadcast carries session events between clients that share one
// credential store: tabs of the same browser profile, or CLI and daemon
// processes pointed at the same Redis.
//
// A [Broadcaster] publishes an [Event] to every other subscriber. Each
// client stamps events with its own origin and ignores events carrying it.
// [Hub] is the in-process implementation; package redisbus carries events
// over Redis pub/sub.
//
// # What this package must NOT do
//
//   - Interpret events. Reacting to a logout is the session client's job.
//   - Block publishers on slow subscribers.
package broadcast
