/*
Package deploy implements zero-downtime deploy and upgrade workflows for
services managed by Rancher.

The deploy package drives a single service through Rancher's in-service
upgrade state machine: it resolves (or creates) the stack, locates the
service, creates it or submits an upgrade, and polls the service until it
reaches the state the workflow needs before moving on.

# Architecture

	┌──────────────────── DEPLOY WORKFLOW ─────────────────────┐
	│                                                           │
	│   "stack/service"                                         │
	│         │                                                 │
	│   ResolveStack ──── missing? ──── CreateStack             │
	│         │                                                 │
	│   LocateService                                           │
	│     │          │                                          │
	│  missing     found                                        │
	│     │          │                                          │
	│  CreateService checkUpgradable (inactive|active)          │
	│     │          │                                          │
	│     │       MergeLaunchConfig + ResolveStrategy           │
	│     │          │                                          │
	│     │       UpgradeService ── wait UPGRADED               │
	│     │          │                                          │
	│     │       confirm? ── FinishUpgrade                     │
	│     │          │                                          │
	│     └──── wait ACTIVE                                     │
	└───────────────────────────────────────────────────────────┘

# Service States

	inactive ─┐
	          ├─ upgrade ─► upgrading ─► upgraded ─┬─ finishupgrade ─► active
	active   ─┘                                    └─ rollback ──────► active

States are compared case-insensitively. Only inactive or active services are
upgraded; Finish requires a service that is exactly upgraded.

# Waiting

Waiter polls GET service every interval (2s by default) until the target
state is seen. The elapsed time is checked after each sleep, so a timeout T
with interval I performs at most ceil(T/I) fetches. A failed fetch or a
vanished service stops the wait with ErrPollError; running out of time gives
ErrPollTimeout. Neither triggers an automatic rollback.

# Usage

	client, err := rancher.NewClient(endpoint, rancher.WithCredentials(access, secret))
	if err != nil {
		return err
	}

	d := deploy.NewDeployer(client, log.WithComponent("cli"))
	err = d.Deploy(ctx, deploy.DeployRequest{
		EnvironmentID: "1a7",
		Service:       "web/nginx",
		Image:         "nginx:1.25",
		Ports:         "8080:80",
		Confirm:       true,
		Timeout:       50 * time.Second,
	})

	// later, for an unconfirmed upgrade
	err = d.Finish(ctx, deploy.FinishRequest{
		EnvironmentID: "1a7",
		Service:       "web/nginx",
		Action:        deploy.FinishRollback,
	})

# Errors

Every failure wraps one of the sentinel errors in errors.go, so callers
match with errors.Is. Remote failures additionally wrap
rancher.ErrRemoteCallFailed.
*/
package deploy
