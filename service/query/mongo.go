// Package query wraps the mongo driver behind a small table-oriented
// interface. See https://godoc.org/go.mongodb.org/mongo-driver/mongo for
// driver details.
package query

import (
	"fmt"

	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/domain"
)

var (
	// ErrNotFound is mongo document not found error
	ErrNotFound = fmt.Errorf("document not found")

	// ErrDuplicateKey is an error when violating unique index
	ErrDuplicateKey = fmt.Errorf("duplicate key")
)

// Mongo abstracts the mongo layer
type Mongo interface {
	// Insert inserts a new document to the table
	Insert(context ctx.Ctx, table domain.Table, insert interface{}) error

	// FindOne gets a single document from the table
	FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error

	// Count returns the number of documents matching the selector
	Count(context ctx.Ctx, table domain.Table, selector interface{}) (n int, err error)

	// Search sorts by `sort` ("field" ascending, "-field" descending; ""
	// skips sorting) and pages with offset/limit
	Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error

	// Remove removes a single document matching the selector.
	// Returns ErrNotFound if the selector matches nothing.
	Remove(context ctx.Ctx, table domain.Table, selector interface{}) error
}
