// Package cache stores analysis reports between runs.
//
// A [Cache] is a byte store with TTLs. Three backends are provided:
//
//   - [FileCache] keeps entries under a local directory (the CLI default).
//   - [RedisCache] shares entries between machines through Redis.
//   - [NullCache] stores nothing, for --no-cache.
//
// Keys come from a [Keyer]. Reports are keyed by the snapshot content hash
// plus every option that changes the result, so a cached report is reused
// only for the same snapshot, targets and exclusion rules.
package cache
