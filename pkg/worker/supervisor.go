package worker

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/zoff-tech/go-crosspost/pkg/queue"
)

// Supervisor watches the pass-result and dead-letter channels and turns them
// into structured log lines and counters. Dead letters are terminal; the
// supervisor surfaces them for operators, it does not re-enqueue.
type Supervisor struct {
	queue   queue.JobQueue
	results <-chan PassResult

	passes      atomic.Int64
	deadLetters atomic.Int64
}

func NewSupervisor(q queue.JobQueue, publisher *PublishWorker) *Supervisor {
	return &Supervisor{queue: q, results: publisher.Results()}
}

// Run blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	dead := s.queue.DeadLetters()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-dead:
			if !ok {
				dead = nil
				continue
			}
			s.deadLetters.Add(1)
			log.WithFields(log.Fields{
				"job_id":   job.ID,
				"job_name": job.Name,
				"attempts": job.Attempt,
				"error":    job.LastError,
			}).Error("Job exhausted its attempts and was dead-lettered")
		case result, ok := <-s.results:
			if !ok {
				return
			}
			s.passes.Add(1)
			log.WithFields(log.Fields{
				"job_id":    result.JobID,
				"post_id":   result.PostID,
				"status":    result.Status,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
			}).Info("Publish pass completed")
		}
	}
}

// Passes reports the number of completed publish passes observed.
func (s *Supervisor) Passes() int64 {
	return s.passes.Load()
}

// DeadLettered reports the number of dead-lettered jobs observed.
func (s *Supervisor) DeadLettered() int64 {
	return s.deadLetters.Load()
}
