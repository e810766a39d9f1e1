package query

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/database/mongoclient"
	"github.com/lotmarket/goauction/base/log"
	"github.com/lotmarket/goauction/domain"
)

const queryMaxTime = 20 * time.Second

type impl struct {
	client *mongoclient.Client
}

// New initializes an impl
func New(client *mongoclient.Client) Mongo {
	return &impl{client: client}
}

func (im *impl) collection(table domain.Table) *mongo.Collection {
	return im.client.Database(im.client.DbName).Collection(string(table))
}

func (im *impl) Insert(context ctx.Ctx, table domain.Table, insert interface{}) error {
	if _, err := im.collection(table).InsertOne(context, insert); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		context.WithFields(log.Fields{
			"table": table,
			"err":   err,
		}).Error("Insert: InsertOne failed")
		return err
	}
	return nil
}

func (im *impl) FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error {
	findOneOpts := options.FindOne().SetMaxTime(queryMaxTime)
	res := im.collection(table).FindOne(context, query, findOneOpts)

	if err := res.Decode(result); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		context.WithFields(log.Fields{
			"table": table,
			"query": query,
			"err":   err,
		}).Error("FindOne: FindOne failed")
		return err
	}
	return nil
}

func (im *impl) Count(context ctx.Ctx, table domain.Table, selector interface{}) (int, error) {
	opts := options.Count().SetMaxTime(queryMaxTime)
	count, err := im.collection(table).CountDocuments(context, selector, opts)
	if err != nil {
		context.WithFields(log.Fields{
			"table":    table,
			"selector": selector,
			"err":      err,
		}).Error("Count: CountDocuments failed")
		return 0, err
	}
	return int(count), nil
}

func (im *impl) Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error {
	findOpts := options.Find().SetMaxTime(queryMaxTime)
	findOpts.SetLimit(int64(limit)).SetSkip(int64(offset))
	if sort != "" {
		if sort[0] == '-' {
			findOpts.SetSort(bson.D{{Key: sort[1:], Value: -1}})
		} else {
			findOpts.SetSort(bson.D{{Key: sort, Value: 1}})
		}
	}

	cursor, err := im.collection(table).Find(context, query, findOpts)
	if err != nil {
		context.WithFields(log.Fields{
			"table": table,
			"query": query,
			"err":   err,
		}).Error("Search: Find failed")
		return err
	}
	defer cursor.Close(context)

	if err := cursor.All(context, results); err != nil {
		context.WithFields(log.Fields{
			"table": table,
			"err":   err,
		}).Error("Search: cursor.All failed")
		return err
	}
	return nil
}

func (im *impl) Remove(context ctx.Ctx, table domain.Table, selector interface{}) error {
	res, err := im.collection(table).DeleteOne(context, selector)
	if err != nil {
		context.WithFields(log.Fields{
			"table":    table,
			"selector": selector,
			"err":      err,
		}).Error("Remove: DeleteOne failed")
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
