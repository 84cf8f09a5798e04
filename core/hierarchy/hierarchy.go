// Package hierarchy assigns each ingested object its single parent.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cordum/depositor/core/model"
	"github.com/cordum/depositor/core/repository"
)

var (
	ErrParentNotFound  = errors.New("hierarchy: parent not found")
	ErrAmbiguousParent = errors.New("hierarchy: parent identifier matches more than one object")
	ErrNoParentModel   = errors.New("hierarchy: model cannot have a parent")
	ErrUnknownLookup   = errors.New("hierarchy: unknown parent lookup")
)

// By selects how a parent id is resolved.
type By int

const (
	// ByIdentifier searches parent-model objects carrying the id.
	ByIdentifier By = iota
	// ByPID treats the id as a repository pid.
	ByPID
)

func (b By) String() string {
	if b == ByPID {
		return "pid"
	}
	return "identifier"
}

// ParseBy accepts "identifier" (the default when empty) or "pid".
func ParseBy(name string) (By, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identifier":
		return ByIdentifier, nil
	case "pid":
		return ByPID, nil
	}
	return ByIdentifier, fmt.Errorf("%w: %q", ErrUnknownLookup, name)
}

// Linker resolves parent ids against a repository.
type Linker struct {
	repo repository.Repository
	by   By
}

func NewLinker(repo repository.Repository, by By) *Linker {
	return &Linker{repo: repo, by: by}
}

// Resolve finds the one object that may parent a child of model child.
func (l *Linker) Resolve(ctx context.Context, child model.Model, parentID string) (*repository.Object, error) {
	parentModel, ok := child.Parent()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoParentModel, child)
	}
	switch l.by {
	case ByPID:
		obj, err := l.repo.Find(ctx, parentID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: pid %s", ErrParentNotFound, parentID)
		}
		if err != nil {
			return nil, err
		}
		if obj.Model != parentModel {
			return nil, fmt.Errorf("%w: %s is a %s, want %s", ErrParentNotFound, parentID, obj.Model, parentModel)
		}
		return obj, nil
	default:
		matches, err := l.repo.FindByIdentifier(ctx, parentModel, parentID)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: %s %q", ErrParentNotFound, parentModel, parentID)
		case 1:
			return matches[0], nil
		default:
			pids := make([]string, len(matches))
			for i, m := range matches {
				pids[i] = m.PID
			}
			return nil, fmt.Errorf("%w: %s %q -> %s", ErrAmbiguousParent, parentModel, parentID, strings.Join(pids, ","))
		}
	}
}

// Link sets child's parent. An empty parentID leaves child a root. The
// child is not saved.
func (l *Linker) Link(ctx context.Context, child *repository.Object, parentID string) (*repository.Object, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, nil
	}
	parent, err := l.Resolve(ctx, child.Model, parentID)
	if err != nil {
		return nil, err
	}
	child.ParentPID = parent.PID
	return parent, nil
}

// Verify reports whether child's parent carries parentID and lists child
// among its children.
func (l *Linker) Verify(ctx context.Context, child *repository.Object, parentID string) (bool, error) {
	if child.ParentPID == "" {
		return false, fmt.Errorf("%w: %s has no parent", ErrParentNotFound, child.PID)
	}
	parent, err := l.repo.Find(ctx, child.ParentPID)
	if err != nil {
		return false, err
	}
	if l.by == ByPID {
		if parent.PID != parentID {
			return false, nil
		}
	} else if !parent.HasIdentifier(parentID) {
		return false, nil
	}
	children, err := l.repo.Children(ctx, parent.PID)
	if err != nil {
		return false, err
	}
	for _, c := range children {
		if c.PID == child.PID {
			return true, nil
		}
	}
	return false, nil
}
