// Package repository defines the object store the pipeline deposits into and
// provides in-memory and Redis implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/model"
)

var (
	ErrNotFound     = errors.New("repository: object not found")
	ErrAlreadySaved = errors.New("repository: object already has a pid")
	ErrNoPID        = errors.New("repository: object has no pid")
	ErrInvalidModel = errors.New("repository: invalid model")
)

const DefaultNamespace = "depositor"

// Repository stores objects and their datastreams.
type Repository interface {
	// Create persists a new object and assigns its pid.
	Create(ctx context.Context, obj *Object) error
	// Save persists an existing object.
	Save(ctx context.Context, obj *Object) error
	Find(ctx context.Context, pid string) (*Object, error)
	Delete(ctx context.Context, pid string) error
	// FindByIdentifier returns objects of model m carrying identifier id.
	FindByIdentifier(ctx context.Context, m model.Model, id string) ([]*Object, error)
	// Children returns objects whose parent is pid, ordered by pid sequence.
	Children(ctx context.Context, pid string) ([]*Object, error)
}

// Options configure repository implementations.
type Options struct {
	Namespace string
	Algorithm checksum.Algorithm
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Namespace) == "" {
		o.Namespace = DefaultNamespace
	}
	if o.Algorithm == "" {
		o.Algorithm = checksum.SHA256
	}
	return o
}

func formatPID(namespace string, seq int64) string {
	return fmt.Sprintf("%s:%d", namespace, seq)
}

func checkNew(obj *Object) error {
	if obj == nil {
		return errors.New("repository: nil object")
	}
	if obj.PID != "" {
		return fmt.Errorf("%w: %s", ErrAlreadySaved, obj.PID)
	}
	if !obj.Model.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidModel, obj.Model)
	}
	return nil
}

func checkExisting(obj *Object) error {
	if obj == nil {
		return errors.New("repository: nil object")
	}
	if obj.PID == "" {
		return ErrNoPID
	}
	return nil
}
