// directory.go - Read-only employee lookup consumed by the engine.
//
// The employee master lives outside this engine. The ledger only needs to
// read an employee's status and gross salary at loan-request time, so the
// dependency is a single-method interface.
package loan

import (
	"context"

	"github.com/warp/loan-engine/generic"
)

// EmployeeDirectory is the engine's read-only view of the employee master.
type EmployeeDirectory interface {
	// GetEmployee returns the employee, or generic.ErrNotFound.
	GetEmployee(ctx context.Context, id generic.EmployeeID) (*Employee, error)
}

// StaticDirectory is a fixed in-memory directory for tests and demos.
type StaticDirectory map[generic.EmployeeID]*Employee

func (d StaticDirectory) GetEmployee(_ context.Context, id generic.EmployeeID) (*Employee, error) {
	emp, ok := d[id]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return emp, nil
}
