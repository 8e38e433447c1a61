package service

import (
	"errors"
	"fmt"

	"github.com/garyjia/spend-approval/internal/domain/entity"
)

var (
	// ErrConfiguration marks a malformed externally managed policy
	ErrConfiguration = errors.New("configuration error")

	// ErrNoRouteFound is returned when no policy, rule or legacy threshold applies
	ErrNoRouteFound = errors.New("no approval route found")

	// ErrUnresolvedApprover is returned when a route level has no approvers
	ErrUnresolvedApprover = errors.New("approval level has no approvers")

	// ErrSubjectResolution is returned when an approval record does not lead to exactly one request
	ErrSubjectResolution = errors.New("approval subject cannot be resolved")

	// ErrConcurrencyConflict is returned when a conditional update lost a race
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrLevelOrder is returned when a level is decided while a lower level is still pending
	ErrLevelOrder = errors.New("lower approval level still pending")

	// ErrNotFound is returned when a request, record or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for caller mistakes
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigurationError describes a policy that was skipped because its rules could not be used
type ConfigurationError struct {
	PolicyID   int64
	PolicyName string
	Err        error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("policy %d (%s): %v", e.PolicyID, e.PolicyName, e.Err)
}

func (e *ConfigurationError) Unwrap() error        { return e.Err }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NoRouteFoundError carries the human-readable reason of an unrouted request
type NoRouteFoundError struct {
	Subject entity.SubjectRef
	Reason  string
}

func (e *NoRouteFoundError) Error() string {
	return fmt.Sprintf("no approval route for %s: %s", e.Subject, e.Reason)
}

func (e *NoRouteFoundError) Is(target error) bool { return target == ErrNoRouteFound }

// UnresolvedApproverError names the route level that resolved to nobody
type UnresolvedApproverError struct {
	Subject entity.SubjectRef
	Level   int
	Role    string
}

func (e *UnresolvedApproverError) Error() string {
	return fmt.Sprintf("no active approver with role %s for level %d of %s", e.Role, e.Level, e.Subject)
}

func (e *UnresolvedApproverError) Is(target error) bool { return target == ErrUnresolvedApprover }

// SubjectResolutionError reports an approval record whose request is missing or ambiguous
type SubjectResolutionError struct {
	ApprovalID int64
	Err        error
}

func (e *SubjectResolutionError) Error() string {
	return fmt.Sprintf("approval %d: %v", e.ApprovalID, e.Err)
}

func (e *SubjectResolutionError) Unwrap() error        { return e.Err }
func (e *SubjectResolutionError) Is(target error) bool { return target == ErrSubjectResolution }
