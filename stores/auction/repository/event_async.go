package repository

import (
	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain/auction"
	"github.com/viney-shih/goroutines"
)

type asyncEventRepo struct {
	inner auction.EventRepo
	pool  *goroutines.Pool
}

// NewAsyncEventRepo decorates an event repo so inserts are fire-and-forget.
// History is a read model; the authoritative outcome of a call never depends
// on the write landing before the call returns.
func NewAsyncEventRepo(inner auction.EventRepo, workers int) auction.EventRepo {
	return &asyncEventRepo{
		inner: inner,
		pool:  goroutines.NewPool(workers),
	}
}

func (r *asyncEventRepo) Insert(c bCtx.Ctx, record *auction.EventRecord) error {
	cp := *record
	r.pool.Schedule(func() {
		if err := r.inner.Insert(c, &cp); err != nil {
			c.WithField("err", err).Error("async event insert failed")
		}
	})
	return nil
}

func (r *asyncEventRepo) FindAll(c bCtx.Ctx, opts ...auction.FindEventsOptions) ([]auction.EventRecord, error) {
	return r.inner.FindAll(c, opts...)
}

func (r *asyncEventRepo) Count(c bCtx.Ctx, opts ...auction.FindEventsOptions) (int, error) {
	return r.inner.Count(c, opts...)
}
