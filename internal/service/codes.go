package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/workorbit/workorbit/internal/domain"
)

// Code formats issued by the hierarchy workflow.
var (
	OrgCodePattern = regexp.MustCompile(`^ORG\d{3}$`)
	HRCodePattern  = regexp.MustCompile(`^HR\d{3}-ORG\d{3}$`)
)

// employeeIDCapacity caps the per-year employee ID space (EMP<year>00001
// through EMP<year>99999).
const employeeIDCapacity = 99999

// FormatHRCode builds an HR code from its per-organization ordinal and the
// owning organization's code, e.g. HR003-ORG001.
func FormatHRCode(ordinal int, orgCode string) string {
	return fmt.Sprintf("HR%03d-%s", ordinal, orgCode)
}

// FormatEmployeeID builds an employee ID from the issue year and sequence
// number, e.g. EMP202500042.
func FormatEmployeeID(year, seq int) string {
	return fmt.Sprintf("EMP%d%05d", year, seq)
}

// nextEmployeeID probes for an unused employee ID for the given year. It
// starts one past the current count and re-checks each candidate against
// the live unique column, because two approvals may race on the same
// sequence number; a racer that slips past the probe is still caught by the
// unique constraint at commit. Exceeding the yearly space returns
// ErrExhaustedCapacity.
func nextEmployeeID(ctx context.Context, users domain.UserRepository, now time.Time) (string, error) {
	year := now.Year()

	count, err := users.CountEmployeesByYear(ctx, year)
	if err != nil {
		return "", err
	}

	for seq := count + 1; seq <= employeeIDCapacity; seq++ {
		candidate := FormatEmployeeID(year, seq)
		exists, err := users.EmployeeIDExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("employee ids for %d: %w", year, domain.ErrExhaustedCapacity)
}
