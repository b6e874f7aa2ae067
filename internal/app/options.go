package service

import (
	"github.com/jonboulle/clockwork"

	workerpool "github.com/okian/kegel/internal/adapters/mq/worker"
	"github.com/okian/kegel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithJournal sets where accepted events are archived.
func WithJournal(j workerpool.Journal) Option {
	return func(s *Service) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithCommandQueueSize bounds the number of pending mutations.
func WithCommandQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.commandQueueSize = size
		}
	}
}

// WithEventQueueSize bounds the journal hand-off queue.
func WithEventQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.eventQueueSize = size
		}
	}
}

// WithWorkerCount sets the number of journal workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
