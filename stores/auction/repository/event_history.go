package repository

import (
	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/log"
	"github.com/lotmarket/goauction/domain"
	"github.com/lotmarket/goauction/domain/auction"
	"github.com/lotmarket/goauction/service/query"
	"go.mongodb.org/mongo-driver/bson"
)

func makeEventsQuery(optFns ...auction.FindEventsOptions) (bson.M, error) {
	opts, err := auction.GetFindEventsOptions(optFns...)
	if err != nil {
		return nil, err
	}

	qry := bson.M{}

	if opts.Contract != nil {
		qry["contract"] = *opts.Contract
	}

	if opts.TokenId != nil {
		qry["tokenId"] = *opts.TokenId
	}

	if opts.Account != nil {
		qry["account"] = *opts.Account
	}

	if len(opts.Types) > 1 {
		qry["type"] = bson.M{"$in": opts.Types}
	} else if len(opts.Types) > 0 {
		qry["type"] = opts.Types[0]
	}

	return qry, nil
}

type eventRepo struct {
	q query.Mongo
}

// NewEventRepo returns the mongo-backed auction event history
func NewEventRepo(q query.Mongo) auction.EventRepo {
	return &eventRepo{q: q}
}

func (r *eventRepo) Insert(c bCtx.Ctx, record *auction.EventRecord) error {
	if err := r.q.Insert(c, domain.TableAuctionEvents, record); err != nil {
		c.WithFields(log.Fields{
			"record": record,
			"err":    err,
		}).Error("q.Insert failed")
		return err
	}
	return nil
}

func (r *eventRepo) FindAll(c bCtx.Ctx, optFns ...auction.FindEventsOptions) ([]auction.EventRecord, error) {
	opts, err := auction.GetFindEventsOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindEventsOptions failed")
		return nil, err
	}

	qry, err := makeEventsQuery(optFns...)
	if err != nil {
		c.WithField("err", err).Error("makeEventsQuery failed")
		return nil, err
	}

	offset := 0
	limit := 100
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}

	records := []auction.EventRecord{}
	if err := r.q.Search(c, domain.TableAuctionEvents, offset, limit, "-time", qry, &records); err != nil {
		c.WithFields(log.Fields{
			"query": qry,
			"err":   err,
		}).Error("q.Search failed")
		return nil, err
	}
	return records, nil
}

func (r *eventRepo) Count(c bCtx.Ctx, optFns ...auction.FindEventsOptions) (int, error) {
	qry, err := makeEventsQuery(optFns...)
	if err != nil {
		c.WithField("err", err).Error("makeEventsQuery failed")
		return 0, err
	}

	n, err := r.q.Count(c, domain.TableAuctionEvents, qry)
	if err != nil {
		c.WithFields(log.Fields{
			"query": qry,
			"err":   err,
		}).Error("q.Count failed")
		return 0, err
	}
	return n, nil
}
