package worker

import (
	"context"
	"os"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nqhuy/render-be/internal/worker/domain"
	"github.com/nqhuy/render-be/shared/logger"
)

// fakeAcker counts acknowledgments per delivery tag
type fakeAcker struct {
	mu    sync.Mutex
	acks  map[uint64]int
	nacks int
}

func newFakeAcker() *fakeAcker {
	return &fakeAcker{acks: map[uint64]int{}}
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks[tag]++
	return nil
}

func (a *fakeAcker) Nack(_ uint64, _ bool, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	return nil
}

func (a *fakeAcker) Reject(_ uint64, _ bool) error {
	return a.Nack(0, false, false)
}

func delivery(acker amqp.Acknowledger, tag uint64, body []byte) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  tag,
		Body:         body,
	}
}

func TestHandleDelivery_AcksExactlyOnce(t *testing.T) {
	tests := []struct {
		name string
		tc   *fakeTranscoder
		body func(t *testing.T) []byte
	}{
		{
			name: "successful job",
			tc:   &fakeTranscoder{},
			body: func(t *testing.T) []byte { return renderMessage(t, "J1", "a.mp4", "p1") },
		},
		{
			name: "failed job",
			tc:   &fakeTranscoder{err: assert.AnError},
			body: func(t *testing.T) []byte { return renderMessage(t, "J1", "a.mp4", "p1") },
		},
		{
			name: "malformed message",
			tc:   &fakeTranscoder{},
			body: func(t *testing.T) []byte { return []byte("{nope") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := newFakeObjectStore()
			objects.objects["a.mp4"] = []byte("v")

			w := newTestWorker(t, newFakeJobStore(), objects, tt.tc)

			acker := newFakeAcker()
			w.handleDelivery(context.Background(), delivery(acker, 7, tt.body(t)))

			assert.Equal(t, 1, acker.acks[7], "delivery must be acked exactly once")
			assert.Zero(t, acker.nacks, "handled errors never nack")
		})
	}
}

// ctxCheckTranscoder behaves like any ctx-honoring stage: it fails as
// soon as the delivery context carries a cancellation.
type ctxCheckTranscoder struct{}

func (ctxCheckTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func TestHandleDelivery_InFlightJobSurvivesShutdown(t *testing.T) {
	// Canceling the consume context stops pulling new deliveries; the
	// delivery already in flight still runs to DONE and is acked,
	// never left FAILED with a cancellation as its diagnostic.
	jobs := newFakeJobStore()
	objects := newFakeObjectStore()
	objects.objects["a.mp4"] = []byte("v")

	w := NewWorker(&Config{
		Logger:     logger.NewDefault().Logger,
		Jobs:       jobs,
		Objects:    objects,
		Transcoder: ctxCheckTranscoder{},
		TempDir:    t.TempDir(),
		WorkerID:   "worker-test",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	acker := newFakeAcker()
	w.handleDelivery(ctx, delivery(acker, 1, renderMessage(t, "J1", "a.mp4", "p1")))

	job := jobs.get("J1")
	assert.Equal(t, domain.JobStatusDone, job.status)
	assert.Empty(t, job.errDetail)
	assert.Equal(t, 1, acker.acks[1])
}

func TestHandleDelivery_AcksOnStatusWriteFailure(t *testing.T) {
	// Accepted limitation: the message is acked even when the job
	// outcome could not be durably recorded.
	jobs := newFakeJobStore()
	jobs.failProcessing = true

	w := newTestWorker(t, jobs, newFakeObjectStore(), &fakeTranscoder{})

	acker := newFakeAcker()
	w.handleDelivery(context.Background(), delivery(acker, 3, renderMessage(t, "J1", "a.mp4", "p1")))

	require.Equal(t, 1, acker.acks[3])
}
