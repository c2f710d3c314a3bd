// Package remote is the client side of the backend system of record. The
// backend itself is opaque to the sync core: everything goes through the
// narrow API below, and the REST client here is just one implementation of it.
package remote

import (
	"context"
	"fmt"
)

// Filter is an equality filter, column name to required value.
type Filter map[string]interface{}

type API interface {
	// Select returns all records of resource matching filter, optionally
	// ordered by the named column ("created_at" or "created_at desc").
	Select(ctx context.Context, resource string, filter Filter, order string) ([]map[string]interface{}, error)

	// Insert creates a record (or a batch, when record is a slice) and
	// returns the created record with its server-assigned canonical id.
	Insert(ctx context.Context, resource string, record interface{}) (map[string]interface{}, error)

	Update(ctx context.Context, resource string, id string, patch map[string]interface{}) error

	Delete(ctx context.Context, resource string, id string) error

	// CallProcedure invokes a named server-side procedure, used for the
	// staff running-total increments.
	CallProcedure(ctx context.Context, name string, args map[string]interface{}) error
}

// StatusError is any non-2xx response from the backend. During replay these
// are transient per-record failures: logged, cool-downed, retried.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote api: status %d: %s", e.Code, e.Body)
}
