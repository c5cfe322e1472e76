package ports

// PayloadCache is the secondary, evict-under-pressure payload tier. Entries are
// keyed by port identity and may disappear at any time; callers must treat a
// miss as "reclaimed".
type PayloadCache interface {
	Put(key uint64, value any)
	Get(key uint64) (any, bool)
	Remove(key uint64)
	Len() int
}
