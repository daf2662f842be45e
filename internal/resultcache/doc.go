// Package resultcache memoizes expensive model calls by content.
//
// Keys are derived from everything that determines a result: the call kind,
// model name, template key, and the input content (image bytes or prompt
// text). A repeated call with identical inputs inside the TTL returns the
// stored bytes without touching the backend. Failed computations are never
// stored.
//
// Two stores are available: SQLite (cache.db, the default) and a JSON file
// (cache.json) guarded by an advisory file lock so concurrent CLI runs do not
// clobber each other.
package resultcache
