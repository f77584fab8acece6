package indexer

// Entry is a request to index TableName. ObjectName tags the keywords the
// table contributes; ParentTable names the importing table and is empty for
// context tables such as built-in libraries.
type Entry struct {
	TableName   string
	ObjectName  string
	ParentTable string
}

// Queue is a FIFO worklist that holds each table at most once. Tables the
// owning Index reports as settled (cached, or already merged into the index
// being built) are never admitted.
type Queue struct {
	entries   []Entry
	pending   map[string]struct{}
	isSettled func(string) bool
}

// NewQueue returns an empty queue. isSettled may be nil.
func NewQueue(isSettled func(string) bool) *Queue {
	return &Queue{
		pending:   make(map[string]struct{}),
		isSettled: isSettled,
	}
}

// Add appends an entry and reports whether it was admitted. Tables already
// pending or already settled are dropped silently.
func (q *Queue) Add(tableName, objectName, parentTable string) bool {
	if _, ok := q.pending[tableName]; ok {
		return false
	}
	if q.isSettled != nil && q.isSettled(tableName) {
		return false
	}
	q.pending[tableName] = struct{}{}
	q.entries = append(q.entries, Entry{
		TableName:   tableName,
		ObjectName:  objectName,
		ParentTable: parentTable,
	})
	return true
}

// Pop removes and returns the oldest entry.
func (q *Queue) Pop() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]
	delete(q.pending, e.TableName)
	return e, true
}

func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the pending entries in queue order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Contains(tableName string) bool {
	_, ok := q.pending[tableName]
	return ok
}

func (q *Queue) Clear() {
	q.entries = nil
	q.pending = make(map[string]struct{})
}
