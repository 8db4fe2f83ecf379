package authz

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// Policy is the ownership stage supplied by each protected resource type.
type Policy[T any] interface {
	// Classify places the executor relative to obj: ResourceOwner,
	// ContainerOwner or Other.
	Classify(ctx context.Context, executor kernel.AccountID, obj T) (Actor, error)

	// Permits decides op for a non-staff actor, possibly looking at the
	// state of obj.
	Permits(op Operation, actor Actor, obj T) bool
}

// Authorize runs the role stage and, when it defers, the ownership stage.
// Other and Nobody are always denied.
func Authorize[T any](ctx context.Context, e *Engine, p Policy[T], executor kernel.AccountID, op Operation, obj T) (bool, Actor, error) {
	outcome, actor, err := e.BasicCheck(ctx, executor)
	if err != nil {
		return false, Nobody, err
	}

	switch outcome {
	case Allow:
		return true, actor, nil
	case Deny:
		return false, actor, nil
	}

	actor, err = p.Classify(ctx, executor, obj)
	if err != nil {
		return false, Nobody, err
	}
	if actor == Other || actor == Nobody {
		return false, actor, nil
	}
	return p.Permits(op, actor, obj), actor, nil
}

// Require is Authorize that turns a denial into iam.ErrAccessDenied.
func Require[T any](ctx context.Context, e *Engine, p Policy[T], executor kernel.AccountID, op Operation, obj T) (Actor, error) {
	ok, actor, err := Authorize(ctx, e, p, executor, op, obj)
	if err != nil {
		return actor, err
	}
	if !ok {
		return actor, iam.ErrAccessDenied().
			WithDetail("operation", string(op))
	}
	return actor, nil
}

// Filter keeps the items the executor may get. The role stage runs once.
func Filter[T any](ctx context.Context, e *Engine, p Policy[T], executor kernel.AccountID, items []T) ([]T, error) {
	outcome, _, err := e.BasicCheck(ctx, executor)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case Allow:
		return items, nil
	case Deny:
		return []T{}, nil
	}

	kept := make([]T, 0, len(items))
	for _, item := range items {
		actor, err := p.Classify(ctx, executor, item)
		if err != nil {
			return nil, err
		}
		if actor == Other || actor == Nobody {
			continue
		}
		if p.Permits(OpGet, actor, item) {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

// Owner classifies executor as ResourceOwner of an object owned by owner.
func Owner(executor, owner kernel.AccountID) Actor {
	if !executor.IsEmpty() && executor == owner {
		return ResourceOwner
	}
	return Other
}

// StaffOnly is the policy of resources no ordinary account may touch.
type StaffOnly[T any] struct{}

func (StaffOnly[T]) Classify(context.Context, kernel.AccountID, T) (Actor, error) { return Other, nil }
func (StaffOnly[T]) Permits(Operation, Actor, T) bool                            { return false }
