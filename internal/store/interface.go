package store

// Store is the durable set of file keys whose three artifacts were all
// written. It only ever grows; entries are appended, never rewritten.
type Store interface {
	// Load returns a copy of the keys read at Open plus those marked since.
	Load() map[string]struct{}
	Contains(key string) bool
	// Mark durably appends key. Marking a present key is a no-op.
	Mark(key string) error
	Len() int
	Close() error
}
