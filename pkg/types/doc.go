/*
Package types defines the Rancher resources corral reads and writes.

The structures mirror the Rancher v2-beta JSON API closely enough to round
trip through it: environments, stacks, services, launch configurations and
the in-service upgrade strategy.

# Launch configurations

Rancher launch configurations carry far more fields than corral manages.
LaunchConfig decodes only the image, port list and environment into typed
fields and keeps every other key as raw JSON in Extra. Marshalling writes the
raw fields back first and the managed fields on top, so an upgrade that only
changes the image leaves health checks, volumes, labels, network mode and
anything added by future Rancher versions exactly as they were.

# Optional results

Rancher answers 404 for resources that do not exist. The client reports that
as Optional[T] in the None state rather than a nil pointer, and callers branch
on Get:

	stacks, err := api.Stacks(ctx, envID)
	if err != nil {
		return err
	}
	list, ok := stacks.Get()
	if !ok {
		// nothing visible in this environment
	}

# Service identifiers

ParseServiceField splits "stack/service" on the first slash only:

	f, _ := types.ParseServiceField("web/api/v2")
	// f.StackName == "web", f.ServiceName == "api/v2"
*/
package types
