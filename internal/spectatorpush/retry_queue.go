package spectatorpush

import "time"

const maxRetryDelay = 30 * time.Second

// retryQueue re-dispatches failed jobs after an exponential delay.
type retryQueue struct {
	out  chan<- pushJob
	done <-chan struct{}
	base time.Duration
}

func newRetryQueue(out chan<- pushJob, done <-chan struct{}, base time.Duration) *retryQueue {
	return &retryQueue{out: out, done: done, base: base}
}

// delay is base * 2^(attempt-1), capped at maxRetryDelay.
func (q *retryQueue) delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := q.base
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

func (q *retryQueue) Enqueue(job pushJob) {
	time.AfterFunc(q.delay(job.Attempt), func() {
		select {
		case <-q.done:
			return
		case q.out <- job:
			metricPushQueueLen.Set(int64(len(q.out)))
		}
	})
}
