package deploy

import (
	"errors"

	"github.com/cuemby/corral/pkg/rancher"
	"github.com/cuemby/corral/pkg/types"
)

// Workflow failures. Every error returned by the deployer wraps exactly one
// of these (or rancher.ErrRemoteCallFailed), so callers can use errors.Is.
var (
	ErrMalformedIdentifier    = types.ErrMalformedIdentifier
	ErrEnvironmentNotFound    = errors.New("environment not found")
	ErrStackNotFound          = errors.New("stack not found")
	ErrStackListUnavailable   = errors.New("stack list unavailable")
	ErrStackCreateFailed      = errors.New("stack create failed")
	ErrServiceListUnavailable = errors.New("service list unavailable")
	ErrServiceNotFound        = errors.New("service not found")
	ErrServiceCreateFailed    = errors.New("service create failed")
	ErrInvalidPrecondition    = errors.New("invalid service state")
	ErrIncompatibleStrategy   = errors.New("incompatible upgrade strategy")
	ErrUpgradeSubmitFailed    = errors.New("upgrade submit failed")
	ErrPollTimeout            = errors.New("timed out waiting for service state")
	ErrPollError              = errors.New("failed to poll service state")
	ErrRemoteCallFailed       = rancher.ErrRemoteCallFailed
)
