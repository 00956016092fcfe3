package report

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/kafka"
)

// IndexBuilt is published after an index file has been written.
type IndexBuilt struct {
	Path      string            `json:"path"`
	Documents int               `json:"documents"`
	Indexed   int               `json:"indexed"`
	Skipped   []indexer.Failure `json:"skipped,omitempty"`
	Bytes     int64             `json:"bytes"`
	BuiltAt   time.Time         `json:"built_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Notifier announces finished builds to downstream consumers.
type Notifier struct {
	pub Publisher
	now func() time.Time
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub, now: time.Now}
}

// IndexBuilt publishes the event for a build of path, keyed by path so that
// events for one index stay ordered within a partition.
func (n *Notifier) IndexBuilt(ctx context.Context, path string, bytes int64, r *indexer.Report) error {
	return n.pub.Publish(ctx, kafka.Event{
		Key: path,
		Value: IndexBuilt{
			Path:      path,
			Documents: r.Documents,
			Indexed:   r.Indexed,
			Skipped:   r.Skipped,
			Bytes:     bytes,
			BuiltAt:   n.now().UTC(),
		},
	})
}
