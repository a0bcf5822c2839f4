package deploy

import (
	"context"
	"fmt"

	"github.com/cuemby/corral/pkg/log"
	"github.com/cuemby/corral/pkg/types"
)

// ResolveStack finds the stack called name in the environment. When it is
// missing it is created if createIfAbsent is set, otherwise ErrStackNotFound
// is returned. Names are compared exactly.
func (d *Deployer) ResolveStack(ctx context.Context, envID, name string, createIfAbsent bool) (types.Stack, error) {
	logger := log.WithStack(d.logger, name)

	found, err := d.api.Stacks(ctx, envID)
	if err != nil {
		return types.Stack{}, fmt.Errorf("%w: environment %s: %w", ErrStackListUnavailable, envID, err)
	}
	stacks, ok := found.Get()
	if !ok {
		return types.Stack{}, fmt.Errorf("%w: environment %s", ErrStackListUnavailable, envID)
	}

	for _, stack := range stacks {
		if stack.Name == name {
			logger.Info().Str("stack_id", stack.ID).Msg("stack already exists, skip")
			return stack, nil
		}
	}

	if !createIfAbsent {
		return types.Stack{}, fmt.Errorf("%w: %s", ErrStackNotFound, name)
	}

	logger.Info().Msg("stack does not exist, creating")
	created, err := d.api.CreateStack(ctx, types.Stack{Name: name}, envID)
	if err != nil {
		return types.Stack{}, fmt.Errorf("%w: %s: %w", ErrStackCreateFailed, name, err)
	}
	stack, ok := created.Get()
	if !ok || stack.ID == "" {
		return types.Stack{}, fmt.Errorf("%w: %s: no stack returned", ErrStackCreateFailed, name)
	}

	logger.Info().Str("stack_id", stack.ID).Msg("stack created")
	return stack, nil
}

// LocateService returns the first service in the stack named name. A
// missing service is not an error.
func (d *Deployer) LocateService(ctx context.Context, envID string, stack types.Stack, name string) (types.Optional[types.Service], error) {
	found, err := d.api.Services(ctx, envID, stack.ID)
	if err != nil {
		return types.None[types.Service](), fmt.Errorf("%w: stack %s: %w", ErrServiceListUnavailable, stack.Name, err)
	}
	services, ok := found.Get()
	if !ok {
		return types.None[types.Service](), fmt.Errorf("%w: stack %s", ErrServiceListUnavailable, stack.Name)
	}

	for _, service := range services {
		if service.Name == name {
			return types.Some(service), nil
		}
	}
	return types.None[types.Service](), nil
}
