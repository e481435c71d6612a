package httpapi

import "github.com/edirooss/findex-server/internal/permission"

// CheckEscalationForTest exposes checkEscalation to httpapi_test, since the
// privilege-escalation comparison itself is otherwise unreachable from any
// route once the Admin-gated middleware already enforces the stronger
// precondition.
func CheckEscalationForTest(callerPerm, grant permission.Permission) error {
	return checkEscalation(callerPerm, grant)
}
