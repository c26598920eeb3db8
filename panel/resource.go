package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Resource is a JSON endpoint addressed by a path template such as 'streams/:Name'.
//
// Placeholders are filled from the record's JSON fields when an instance is saved.
// Placeholders without a value are dropped together with trailing slashes,
// so 'streams/:Name' is fetched as 'streams' and saved as 'streams/{Name}'.
type Resource[T any] struct {
	client   *Client
	template string
}

// NewResource binds path template to the client
func NewResource[T any](client *Client, template string) *Resource[T] {
	return &Resource[T]{
		client:   client,
		template: template,
	}
}

// Query fetches the collection in background. Returned collection is empty until the fetch completes.
// Callbacks are invoked once the collection is populated and before Done is closed. A failed fetch skips them: check Err
func (r *Resource[T]) Query(ctx context.Context, callbacks ...func(*Collection[T])) *Collection[T] {
	coll := &Collection[T]{
		done: make(chan struct{}),
	}
	go func() {
		var records []T
		err := r.client.do(ctx, http.MethodGet, r.path(nil), nil, &records)
		coll.mu.Lock()
		if err != nil {
			coll.err = err
		} else {
			coll.items = make([]*Instance[T], 0, len(records))
			for i := range records {
				coll.items = append(coll.items, r.resolved(records[i]))
			}
		}
		coll.mu.Unlock()
		if err == nil {
			for _, callback := range callbacks {
				callback(coll)
			}
		}
		close(coll.done)
	}()
	return coll
}

// Get fetches single record in background. Returned instance holds zero value until the fetch completes.
// Callbacks are invoked once the record is populated and before Done is closed. A failed fetch skips them: check Err
func (r *Resource[T]) Get(ctx context.Context, callbacks ...func(*Instance[T])) *Instance[T] {
	inst := &Instance[T]{
		resource: r,
		done:     make(chan struct{}),
	}
	go func() {
		var record T
		err := r.client.do(ctx, http.MethodGet, r.path(nil), nil, &record)
		inst.mu.Lock()
		if err != nil {
			inst.err = err
		} else {
			inst.data = record
		}
		inst.mu.Unlock()
		if err == nil {
			for _, callback := range callbacks {
				callback(inst)
			}
		}
		close(inst.done)
	}()
	return inst
}

// New wraps record as an already resolved instance of the resource (e.g. to save a record built locally)
func (r *Resource[T]) New(record T) *Instance[T] {
	return r.resolved(record)
}

func (r *Resource[T]) resolved(record T) *Instance[T] {
	done := make(chan struct{})
	close(done)
	return &Instance[T]{
		resource: r,
		data:     record,
		done:     done,
	}
}

// path expands template with provided parameters
func (r *Resource[T]) path(params map[string]string) string {
	segments := strings.Split(r.template, "/")
	expanded := make([]string, 0, len(segments))
	for _, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			value := params[segment[1:]]
			if value == "" {
				continue
			}
			segment = url.PathEscape(value)
		}
		expanded = append(expanded, segment)
	}
	return strings.TrimRight(strings.Join(expanded, "/"), "/")
}

// instancePath expands template with the record's own fields
func (r *Resource[T]) instancePath(record T) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", errors.Wrap(err, "Can't encode record")
	}
	fields := map[string]any{}
	// Non-object records have no fields to fill placeholders with
	if err := json.Unmarshal(payload, &fields); err != nil {
		return r.path(nil), nil
	}
	params := make(map[string]string, len(fields))
	for name, value := range fields {
		switch v := value.(type) {
		case string:
			params[name] = v
		case float64:
			params[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[name] = strconv.FormatBool(v)
		}
	}
	return r.path(params), nil
}

// Instance is a single record of a resource
type Instance[T any] struct {
	resource *Resource[T]
	mu       sync.RWMutex
	data     T
	err      error
	done     chan struct{}
}

// Value returns copy of current field values
func (inst *Instance[T]) Value() T {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.data
}

// Update mutates fields in place. Nothing is persisted until Save
func (inst *Instance[T]) Update(fn func(record *T)) {
	inst.mu.Lock()
	fn(&inst.data)
	inst.mu.Unlock()
}

// Done is closed when the instance has been fetched (or failed to)
func (inst *Instance[T]) Done() <-chan struct{} {
	return inst.done
}

// Err returns fetch error if any
func (inst *Instance[T]) Err() error {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.err
}

// Wait blocks until the instance is fetched or ctx is done
func (inst *Instance[T]) Wait(ctx context.Context) error {
	select {
	case <-inst.done:
		return inst.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Save persists current field values. It does not block: use returned call to observe completion
func (inst *Instance[T]) Save(ctx context.Context) *Call {
	record := inst.Value()
	call := newCall()
	go func() {
		path, err := inst.resource.instancePath(record)
		if err == nil {
			err = inst.resource.client.do(ctx, http.MethodPost, path, record, nil)
		}
		call.resolve(err)
	}()
	return call
}

// Collection is an ordered list of instances fetched by Query
type Collection[T any] struct {
	mu    sync.RWMutex
	items []*Instance[T]
	err   error
	done  chan struct{}
}

// Items returns instances in fetch order. It is empty before the fetch completes
func (coll *Collection[T]) Items() []*Instance[T] {
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	items := make([]*Instance[T], len(coll.items))
	copy(items, coll.items)
	return items
}

// Len returns number of fetched instances
func (coll *Collection[T]) Len() int {
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	return len(coll.items)
}

// Done is closed when the collection has been fetched (or failed to)
func (coll *Collection[T]) Done() <-chan struct{} {
	return coll.done
}

// Err returns fetch error if any
func (coll *Collection[T]) Err() error {
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	return coll.err
}

// Wait blocks until the collection is fetched or ctx is done
func (coll *Collection[T]) Wait(ctx context.Context) error {
	select {
	case <-coll.done:
		return coll.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
