package worker

import (
	"context"
	"sync"
)

type partitionKey struct {
	topic     string
	partition int32
}

// offsetTracker releases commits per partition in arrival order. A record is
// committed only after every earlier record of its partition has finished, so
// an unfinished record holds back the offsets behind it.
type offsetTracker struct {
	mu     sync.Mutex
	queues map[partitionKey]*partitionQueue
}

type partitionQueue struct {
	key     partitionKey
	entries []*trackedRecord
	broken  bool
}

type trackedRecord struct {
	record *Record
	queue  *partitionQueue
	done   bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{queues: make(map[partitionKey]*partitionQueue)}
}

// track registers record as in flight on its partition.
func (t *offsetTracker) track(record *Record) *trackedRecord {
	key := partitionKey{topic: record.Topic, partition: record.Partition}

	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[key]
	if !ok {
		q = &partitionQueue{key: key}
		t.queues[key] = q
	}
	entry := &trackedRecord{record: record, queue: q}
	q.entries = append(q.entries, entry)
	return entry
}

// finish marks entry done and commits the contiguous run of finished records
// at the head of its partition, oldest first.
func (t *offsetTracker) finish(ctx context.Context, entry *trackedRecord, commit func(context.Context, *Record)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := entry.queue
	if q.broken {
		return
	}
	entry.done = true

	n := 0
	for n < len(q.entries) && q.entries[n].done {
		commit(ctx, q.entries[n].record)
		n++
	}
	q.entries = q.entries[n:]
	if len(q.entries) == 0 && t.queues[q.key] == q {
		delete(t.queues, q.key)
	}
}

// abandon leaves entry uncommitted. Every record still queued on the same
// partition, finished or not, is dropped without commit so the consumer
// resumes from entry's offset. Records arriving later start a new queue.
func (t *offsetTracker) abandon(entry *trackedRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := entry.queue
	if q.broken {
		return
	}
	q.broken = true
	q.entries = nil
	if t.queues[q.key] == q {
		delete(t.queues, q.key)
	}
}

// pending reports how many records are waiting for commit on a partition.
func (t *offsetTracker) pending(topic string, partition int32) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if q, ok := t.queues[partitionKey{topic: topic, partition: partition}]; ok {
		return len(q.entries)
	}
	return 0
}
