package storage

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented counts blob operations by op and result.
type Instrumented struct {
	next BlobStore
	ops  *prometheus.CounterVec
}

func NewInstrumented(next BlobStore, ops *prometheus.CounterVec) *Instrumented {
	return &Instrumented{next: next, ops: ops}
}

func (s *Instrumented) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.ops.WithLabelValues(op, result).Inc()
}

func (s *Instrumented) Put(ctx context.Context, u *Upload) (string, error) {
	name, err := s.next.Put(ctx, u)
	s.observe("put", err)
	return name, err
}

func (s *Instrumented) Delete(ctx context.Context, name string) error {
	err := s.next.Delete(ctx, name)
	s.observe("delete", err)
	return err
}

func (s *Instrumented) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.next.Exists(ctx, name)
	s.observe("exists", err)
	return ok, err
}

func (s *Instrumented) URL(ctx context.Context, name string) (string, error) {
	return s.next.URL(ctx, name)
}
