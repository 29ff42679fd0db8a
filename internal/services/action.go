package services

import (
	"context"

	"github.com/yukikurage/task-management-client/internal/cache"
	apierrors "github.com/yukikurage/task-management-client/internal/errors"
)

// owned pairs mutation input with the user whose task list it changes.
type owned[I any] struct {
	OwnerID int64
	Input   I
}

// Action is a task mutation bound to the signed-in user. It exposes the
// blocking (MutateAsync) and fire-and-forget (Mutate) forms plus the pending
// flag a screen disables its controls with.
type Action[I, R any] struct {
	mutation *cache.Mutation[owned[I], R]
	owner    func() (int64, error)
	check    func(I) error
	notifier Notifier

	failureTitle string
	success      func(I, R) (title, message string)
}

// MutateAsync runs the mutation and waits for the server.
func (a *Action[I, R]) MutateAsync(ctx context.Context, input I) (R, error) {
	vars, err := a.prepare(input)
	if err != nil {
		var zero R
		a.fail(err)
		return zero, err
	}
	res := a.mutation.Do(ctx, vars)
	a.report(input, res)
	return res.Value, res.Err
}

// Mutate applies the change locally before returning; the result arrives
// on the channel.
func (a *Action[I, R]) Mutate(ctx context.Context, input I) <-chan cache.Result[R] {
	out := make(chan cache.Result[R], 1)
	vars, err := a.prepare(input)
	if err != nil {
		a.fail(err)
		out <- cache.Result[R]{Err: err}
		close(out)
		return out
	}

	inner := a.mutation.Mutate(ctx, vars)
	go func() {
		res := <-inner
		a.report(input, res)
		out <- res
		close(out)
	}()
	return out
}

func (a *Action[I, R]) IsPending() bool {
	return a.mutation.IsPending()
}

func (a *Action[I, R]) Phase() cache.Phase {
	return a.mutation.Phase()
}

func (a *Action[I, R]) prepare(input I) (owned[I], error) {
	ownerID, err := a.owner()
	if err != nil {
		return owned[I]{}, err
	}
	if a.check != nil {
		if err := a.check(input); err != nil {
			return owned[I]{}, err
		}
	}
	return owned[I]{OwnerID: ownerID, Input: input}, nil
}

func (a *Action[I, R]) report(input I, res cache.Result[R]) {
	if res.Err != nil {
		a.fail(res.Err)
		return
	}
	title, message := a.success(input, res.Value)
	a.notifier.Success(title, message)
}

func (a *Action[I, R]) fail(err error) {
	a.notifier.Error(a.failureTitle, apierrors.Message(err))
}
