package deploy

import (
	"context"
	"fmt"

	"github.com/cuemby/corral/pkg/rancher"
	"github.com/cuemby/corral/pkg/types"
)

// fakeAPI is an in-memory Rancher that records mutating calls and replays a
// scripted sequence of service states to the waiter
type fakeAPI struct {
	env types.Optional[types.Environment]

	stacks       types.Optional[[]types.Stack]
	stacksErr    error
	createdStack types.Optional[types.Stack]

	services        types.Optional[[]types.Service]
	servicesErr     error
	createdService  types.Optional[types.Service]
	upgradedService types.Optional[types.Service]

	states      []string
	serviceErr  error
	serviceGone bool

	createStackCalls   []types.Stack
	createServiceCalls []types.Service
	upgradeCalls       []types.ServiceUpgrade
	finishCalls        int
	rollbackCalls      int
	serviceCalls       int
}

var _ rancher.API = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		stacks:   types.Some([]types.Stack{}),
		services: types.Some([]types.Service{}),
	}
}

func (f *fakeAPI) mutations() int {
	return len(f.createStackCalls) + len(f.createServiceCalls) + len(f.upgradeCalls) + f.finishCalls + f.rollbackCalls
}

func (f *fakeAPI) Environment(ctx context.Context, envID string) (types.Optional[types.Environment], error) {
	return f.env, nil
}

func (f *fakeAPI) Stacks(ctx context.Context, envID string) (types.Optional[[]types.Stack], error) {
	if f.stacksErr != nil {
		return types.None[[]types.Stack](), f.stacksErr
	}
	return f.stacks, nil
}

func (f *fakeAPI) CreateStack(ctx context.Context, stack types.Stack, envID string) (types.Optional[types.Stack], error) {
	f.createStackCalls = append(f.createStackCalls, stack)
	return f.createdStack, nil
}

func (f *fakeAPI) Services(ctx context.Context, envID, stackID string) (types.Optional[[]types.Service], error) {
	if f.servicesErr != nil {
		return types.None[[]types.Service](), f.servicesErr
	}
	return f.services, nil
}

func (f *fakeAPI) Service(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error) {
	f.serviceCalls++
	if f.serviceErr != nil {
		return types.None[types.Service](), f.serviceErr
	}
	if f.serviceGone {
		return types.None[types.Service](), nil
	}
	if len(f.states) == 0 {
		return types.None[types.Service](), fmt.Errorf("fakeAPI: no states scripted")
	}

	state := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return types.Some(types.Service{ID: serviceID, State: state}), nil
}

func (f *fakeAPI) CreateService(ctx context.Context, service types.Service, envID, stackID string) (types.Optional[types.Service], error) {
	service.StackID = stackID
	f.createServiceCalls = append(f.createServiceCalls, service)
	return f.createdService, nil
}

func (f *fakeAPI) UpgradeService(ctx context.Context, envID, serviceID string, upgrade types.ServiceUpgrade) (types.Optional[types.Service], error) {
	f.upgradeCalls = append(f.upgradeCalls, upgrade)
	return f.upgradedService, nil
}

func (f *fakeAPI) FinishUpgrade(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error) {
	f.finishCalls++
	return types.Some(types.Service{ID: serviceID}), nil
}

func (f *fakeAPI) RollbackUpgrade(ctx context.Context, envID, serviceID string) (types.Optional[types.Service], error) {
	f.rollbackCalls++
	return types.Some(types.Service{ID: serviceID}), nil
}
