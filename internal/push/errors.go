package push

import (
	"errors"
	"fmt"

	"github.com/LuisCutz/expo-notifications/internal/apperr"
)

// Reason is why a registration run produced no token.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNotAPhysicalDevice Reason = "not_a_physical_device"
	ReasonPermissionDenied   Reason = "permission_denied"
	ReasonMissingProjectID   Reason = "missing_project_id"
	ReasonPlatformError      Reason = "platform_error"
)

// Sentinels matched by errors.Is on a registration error.
var (
	ErrNotAPhysicalDevice = errors.New("must use a physical device for push notifications")
	ErrPermissionDenied   = errors.New("permission not granted to get push token for push notification")
	ErrMissingProjectID   = errors.New("project id not found")
	ErrPlatform           = errors.New("platform error")
)

// ReasonOf returns the registration failure reason carried by err.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrNotAPhysicalDevice):
		return ReasonNotAPhysicalDevice
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrMissingProjectID):
		return ReasonMissingProjectID
	default:
		return ReasonPlatformError
	}
}

func notAPhysicalDevice() error {
	return &apperr.Error{Kind: apperr.KindPermission, Op: "register", Message: ErrNotAPhysicalDevice.Error(), Err: ErrNotAPhysicalDevice}
}

func permissionDenied() error {
	return &apperr.Error{Kind: apperr.KindPermission, Op: "register", Message: ErrPermissionDenied.Error(), Err: ErrPermissionDenied}
}

func missingProjectID() error {
	return &apperr.Error{Kind: apperr.KindConfiguration, Op: "register", Message: ErrMissingProjectID.Error(), Err: ErrMissingProjectID}
}

// platformError keeps the platform's own message for display.
func platformError(step string, cause error) error {
	return &apperr.Error{
		Kind:    apperr.KindPlatform,
		Op:      "register",
		Message: cause.Error(),
		Err:     fmt.Errorf("%w: %s: %w", ErrPlatform, step, cause),
	}
}
