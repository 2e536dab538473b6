package entitlement

import "errors"

var ErrNotEntitled = errors.New("plan limit reached")

// EntitlementError is returned when a tier does not permit an action.
type EntitlementError struct {
	Action  Action
	Tier    string
	Message string
}

func (e *EntitlementError) Error() string {
	return e.Message
}

func (e *EntitlementError) Is(target error) bool {
	return target == ErrNotEntitled
}
