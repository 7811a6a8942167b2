package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"time"
)

// Publisher ships a batch of digest entries somewhere (Kafka in the service).
type Publisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

type DigestConfig struct {
	FlushInterval time.Duration // periodic flush, default 30s
	MaxEntries    int           // flush early once this many distinct entries are held
	Key           string        // message key passed to the publisher
	Publisher     Publisher
}

// DigestEntry groups identical log lines seen between two flushes.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// ErrorDigest deduplicates error entries and publishes them in batches.
type ErrorDigest struct {
	cfg     DigestConfig
	mu      sync.Mutex
	entries map[uint64]*DigestEntry
	now     func() time.Time
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewErrorDigest(cfg DigestConfig) *ErrorDigest {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	d := &ErrorDigest{
		cfg:     cfg,
		entries: make(map[uint64]*DigestEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *ErrorDigest) Add(level, msg string, fields map[string]interface{}, caller string) {
	key := digestKey(level, msg, fields, caller)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		d.entries[key] = &DigestEntry{
			Level: level, Message: msg, Fields: fields, Caller: caller,
			Count: 1, FirstSeen: now, LastSeen: now,
		}
	}
	if len(d.entries) >= d.cfg.MaxEntries {
		d.flushLocked()
	}
}

// Pending reports how many distinct entries wait for the next flush.
func (d *ErrorDigest) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *ErrorDigest) loop() {
	defer close(d.done)
	t := time.NewTicker(d.cfg.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
		case <-d.stop:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
			return
		}
	}
}

func (d *ErrorDigest) flushLocked() {
	if len(d.entries) == 0 {
		return
	}
	batch := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		batch = append(batch, *e)
	}
	d.entries = make(map[uint64]*DigestEntry)

	if d.cfg.Publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.cfg.Publisher.Publish(ctx, d.cfg.Key, batch); err != nil {
			// the logger itself is the caller here, so stderr is the only safe sink
			fmt.Fprintf(os.Stderr, "log digest publish failed: %v\n", err)
		}
	}()
}

// Close flushes remaining entries and stops the background loop.
func (d *ErrorDigest) Close() {
	d.once.Do(func() {
		close(d.stop)
		<-d.done
	})
}

func digestKey(level, msg string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	b, _ := json.Marshal(fields)
	fmt.Fprintf(h, "%s|%s|%s|", level, msg, caller)
	h.Write(b)
	return h.Sum64()
}
