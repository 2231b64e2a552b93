package telegram

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a Bot API response with ok=false.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api error %d: %s", e.Code, e.Description)
}

// IsAlreadyResolved reports whether an approval failed because the join
// request no longer exists on the platform side. The requester withdrew,
// another admin acted first, or the user is already a member. Callers
// treat this as success.
func IsAlreadyResolved(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	desc := strings.ToUpper(apiErr.Description)
	return strings.Contains(desc, "HIDE_REQUESTER_MISSING") ||
		strings.Contains(desc, "USER_ALREADY_PARTICIPANT")
}

// IsPermanent reports whether an error cannot be cured by retrying the
// same call. Missing admin rights, a kicked bot, or a chat that does not
// exist stay broken until an operator intervenes.
func IsPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == 403 {
		return true
	}
	if apiErr.Code == 400 {
		desc := strings.ToUpper(apiErr.Description)
		return strings.Contains(desc, "CHAT_ADMIN_REQUIRED") ||
			strings.Contains(desc, "NOT ENOUGH RIGHTS") ||
			strings.Contains(desc, "CHAT NOT FOUND") ||
			strings.Contains(desc, "USER_ID_INVALID")
	}
	return false
}
