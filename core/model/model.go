// Package model holds the closed set of object models and metadata types the
// deposit pipeline understands.
package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingModel        = errors.New("model not specified")
	ErrUnknownModel        = errors.New("unknown model")
	ErrUnknownMetadataType = errors.New("unknown metadata type")
)

// Model is a repository object type.
type Model string

const (
	Collection Model = "Collection"
	Item       Model = "Item"
	Component  Model = "Component"
)

type modelInfo struct {
	parent     Model
	hasContent bool
}

// Parent relationships are a strict tree: Component -> Item -> Collection.
var models = map[Model]modelInfo{
	Collection: {},
	Item:       {parent: Collection, hasContent: true},
	Component:  {parent: Item, hasContent: true},
}

// Known lists models in hierarchy order, roots first.
func Known() []Model {
	return []Model{Collection, Item, Component}
}

// Parse resolves a manifest model name. Matching is case-insensitive.
func Parse(name string) (Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrMissingModel
	}
	for _, m := range Known() {
		if strings.EqualFold(string(m), name) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// Valid reports whether m is a known model.
func (m Model) Valid() bool {
	_, ok := models[m]
	return ok
}

// Parent returns the model a parent of m must have.
func (m Model) Parent() (Model, bool) {
	info, ok := models[m]
	if !ok || info.parent == "" {
		return "", false
	}
	return info.parent, true
}

// HasContent reports whether objects of this model carry a content datastream.
func (m Model) HasContent() bool {
	return models[m].hasContent
}

func (m Model) String() string {
	return string(m)
}
