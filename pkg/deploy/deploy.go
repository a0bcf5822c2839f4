package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/corral/pkg/log"
	"github.com/cuemby/corral/pkg/metrics"
	"github.com/cuemby/corral/pkg/rancher"
	"github.com/cuemby/corral/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("corral.deploy")

// FinishAction selects how an upgraded service is finished
type FinishAction string

const (
	FinishConfirm  FinishAction = "confirm"
	FinishRollback FinishAction = "rollback"
)

// IsRollback reports whether the action asks for a rollback. Anything that
// is not "rollback" (in any case) confirms.
func (a FinishAction) IsRollback() bool {
	return strings.EqualFold(string(a), string(FinishRollback))
}

// DeployRequest describes one deploy-or-upgrade run. All strings are
// expected to be interpolated already.
type DeployRequest struct {
	EnvironmentID string
	Service       string // "stack/service"
	Image         string
	Ports         string // "8080:80,8443:443"
	Environment   map[string]any
	StartFirst    bool
	Confirm       bool
	Timeout       time.Duration
}

// FinishRequest describes one confirm-or-rollback run
type FinishRequest struct {
	EnvironmentID string
	Service       string
	Action        FinishAction
	Timeout       time.Duration
}

// Deployer drives services through Rancher's in-service upgrade workflow
type Deployer struct {
	api    rancher.API
	logger zerolog.Logger
	waiter *Waiter
}

// NewDeployer creates a new deployer
func NewDeployer(api rancher.API, logger zerolog.Logger) *Deployer {
	logger = logger.With().Str("component", "deploy").Logger()
	return &Deployer{
		api:    api,
		logger: logger,
		waiter: NewWaiter(api, logger),
	}
}

// WithPollInterval sets the pause between state fetches
func (d *Deployer) WithPollInterval(interval time.Duration) *Deployer {
	d.waiter.WithInterval(interval)
	return d
}

// Deploy creates the service if it does not exist, or upgrades it in place.
// The stack is created on demand. When req.Confirm is false an upgraded
// service is left in the upgraded state for a later Finish.
func (d *Deployer) Deploy(ctx context.Context, req DeployRequest) (err error) {
	ctx, span := tracer.Start(ctx, "deploy.Deploy")
	defer span.End()

	path := "create"
	defer func() { d.record(span, "deploy", path, err) }()

	field, err := types.ParseServiceField(req.Service)
	if err != nil {
		return err
	}
	imageUUID := ImageUUID(req.Image)
	span.SetAttributes(
		attribute.String("rancher.environment", req.EnvironmentID),
		attribute.String("rancher.stack", field.StackName),
		attribute.String("rancher.service", field.ServiceName),
		attribute.String("rancher.image", imageUUID),
	)

	d.logger.Info().
		Str("image", imageUUID).
		Str("service", field.String()).
		Str("environment", req.EnvironmentID).
		Msgf("deploy/upgrade image %s to service %s", imageUUID, field)

	stack, err := d.ResolveStack(ctx, req.EnvironmentID, field.StackName, true)
	if err != nil {
		return err
	}

	found, err := d.LocateService(ctx, req.EnvironmentID, stack, field.ServiceName)
	if err != nil {
		return err
	}

	if existing, ok := found.Get(); ok {
		path = "upgrade"
		return d.upgradeService(ctx, req, existing, imageUUID)
	}
	return d.createService(ctx, req, stack, field.ServiceName, imageUUID)
}

func (d *Deployer) createService(ctx context.Context, req DeployRequest, stack types.Stack, name, imageUUID string) error {
	logger := log.WithStack(d.logger, stack.Name).With().Str("service", name).Logger()
	logger.Info().Msg("creating service instance")

	service := types.Service{
		Name:         name,
		LaunchConfig: NewLaunchConfig(imageUUID, req.Ports, req.Environment),
	}

	created, err := d.api.CreateService(ctx, service, req.EnvironmentID, stack.ID)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrServiceCreateFailed, name, err)
	}
	instance, ok := created.Get()
	if !ok || instance.ID == "" {
		return fmt.Errorf("%w: %s: no service returned", ErrServiceCreateFailed, name)
	}

	return d.waiter.WaitForState(ctx, req.EnvironmentID, instance.ID, types.ServiceStateActive, req.Timeout)
}

func (d *Deployer) upgradeService(ctx context.Context, req DeployRequest, service types.Service, imageUUID string) error {
	logger := log.WithServiceID(d.logger, service.ID).With().Str("service", service.Name).Logger()
	logger.Info().Msg("upgrading service instance")

	if err := checkUpgradable(logger, service); err != nil {
		return err
	}

	launchConfig := MergeLaunchConfig(service.LaunchConfig, imageUUID, req.Ports, req.Environment)
	strategy, err := ResolveStrategy(req.StartFirst, launchConfig)
	if err != nil {
		return err
	}

	upgraded, err := d.api.UpgradeService(ctx, req.EnvironmentID, service.ID, types.ServiceUpgrade{
		InServiceStrategy: strategy,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpgradeSubmitFailed, service.Name, err)
	}
	instance, ok := upgraded.Get()
	if !ok || instance.ID == "" {
		return fmt.Errorf("%w: %s: no service returned", ErrUpgradeSubmitFailed, service.Name)
	}

	if err := d.waiter.WaitForState(ctx, req.EnvironmentID, instance.ID, types.ServiceStateUpgraded, req.Timeout); err != nil {
		return err
	}

	if !req.Confirm {
		logger.Info().Msg("upgrade not confirmed, service left upgraded")
		return nil
	}

	if _, err := d.api.FinishUpgrade(ctx, req.EnvironmentID, instance.ID); err != nil {
		return fmt.Errorf("failed to finish upgrade of %s: %w", service.Name, err)
	}
	return d.waiter.WaitForState(ctx, req.EnvironmentID, instance.ID, types.ServiceStateActive, req.Timeout)
}

// Finish confirms or rolls back a service left upgraded by Deploy. The stack
// and service must already exist and the service must be upgraded.
func (d *Deployer) Finish(ctx context.Context, req FinishRequest) (err error) {
	ctx, span := tracer.Start(ctx, "deploy.Finish")
	defer span.End()

	path := string(FinishConfirm)
	if req.Action.IsRollback() {
		path = string(FinishRollback)
	}
	defer func() { d.record(span, "finish", path, err) }()

	field, err := types.ParseServiceField(req.Service)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("rancher.environment", req.EnvironmentID),
		attribute.String("rancher.stack", field.StackName),
		attribute.String("rancher.service", field.ServiceName),
		attribute.String("corral.finish_action", path),
	)

	d.logger.Info().
		Str("action", path).
		Str("service", field.String()).
		Str("environment", req.EnvironmentID).
		Msgf("finish[%s] upgraded service %s", path, field)

	stack, err := d.ResolveStack(ctx, req.EnvironmentID, field.StackName, false)
	if err != nil {
		return err
	}

	found, err := d.LocateService(ctx, req.EnvironmentID, stack, field.ServiceName)
	if err != nil {
		return err
	}
	service, ok := found.Get()
	if !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, field)
	}

	d.logger.Info().Str("service_id", service.ID).Msgf("service %s current state is %s", field, service.State)
	if !types.ServiceStateUpgraded.Is(service.State) {
		return fmt.Errorf("%w: before finishing, service %s should be upgraded, is %q",
			ErrInvalidPrecondition, field, service.State)
	}

	if req.Action.IsRollback() {
		_, err = d.api.RollbackUpgrade(ctx, req.EnvironmentID, service.ID)
	} else {
		_, err = d.api.FinishUpgrade(ctx, req.EnvironmentID, service.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to %s upgrade of %s: %w", path, field, err)
	}

	return d.waiter.WaitForState(ctx, req.EnvironmentID, service.ID, types.ServiceStateActive, req.Timeout)
}

// Probe checks that the endpoint is reachable and the environment exists
func (d *Deployer) Probe(ctx context.Context, envID string) (types.Environment, error) {
	found, err := d.api.Environment(ctx, envID)
	if err != nil {
		return types.Environment{}, err
	}
	env, ok := found.Get()
	if !ok {
		return types.Environment{}, fmt.Errorf("%w: environment [%s] not found, please check configuration", ErrEnvironmentNotFound, envID)
	}
	return env, nil
}

// checkUpgradable enforces that only inactive or active services are upgraded
func checkUpgradable(logger zerolog.Logger, service types.Service) error {
	logger.Info().Str("state", service.State).Msgf("service %s current state is %s", service.Name, service.State)
	if types.ServiceStateInactive.Is(service.State) || types.ServiceStateActive.Is(service.State) {
		return nil
	}
	return fmt.Errorf("%w: before upgrade, service %s should be inactive or active, is %q",
		ErrInvalidPrecondition, service.Name, service.State)
}

func (d *Deployer) record(span trace.Span, workflow, path string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error().Err(err).Str("workflow", workflow).Msg("workflow failed")
	} else {
		d.logger.Info().Str("workflow", workflow).Str("path", path).Msg("workflow complete")
	}
	metrics.DeploymentsTotal.WithLabelValues(workflow, path, result).Inc()
}
