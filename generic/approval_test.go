/*
approval_test.go - Tests for the shared approval state machine

PURPOSE:
  These tests document the behaviors every request kind inherits:
  1. Terminal-once-set - Approved/Rejected can never change again
  2. Capability gating - resolution requires the kind's registered capability
  3. Atomic resolution - status and approver fields land together

Each test has GIVEN/WHEN/THEN comments explaining the scenario.
*/
package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loan-engine/generic"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

const kindTest generic.Kind = "test_request"

func init() {
	generic.RegisterKind(kindTest, generic.Capability("approve:test"))
}

func testApprover() generic.Actor {
	return generic.Actor{ID: "mgr-1", Capabilities: []generic.Capability{"approve:test"}}
}

func at(h int) time.Time {
	return time.Date(2025, time.March, 10, h, 0, 0, 0, time.UTC)
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestApproval_Approve_SetsStatusAndApproverTogether(t *testing.T) {
	// GIVEN: A pending approval
	// WHEN: An authorized actor approves it
	// THEN: Status, approver, and timestamp are all set

	a := generic.NewApproval("emp-1", at(9))

	err := a.Resolve(kindTest, generic.DecisionApprove, testApprover(), at(10), "looks fine")
	require.NoError(t, err)

	assert.Equal(t, generic.StatusApproved, a.Status)
	assert.Equal(t, "mgr-1", a.ApprovedBy)
	require.NotNil(t, a.ApprovedAt)
	assert.Equal(t, at(10), *a.ApprovedAt)
	assert.Equal(t, "looks fine", a.Comments)
}

func TestApproval_Reject_IsTerminal(t *testing.T) {
	// GIVEN: A rejected approval
	// WHEN: Anyone tries to resolve it again, either way
	// THEN: ConflictError, state unchanged

	a := generic.NewApproval("emp-1", at(9))
	require.NoError(t, a.Resolve(kindTest, generic.DecisionReject, testApprover(), at(10), "no budget"))
	require.Equal(t, generic.StatusRejected, a.Status)

	err := a.Resolve(kindTest, generic.DecisionApprove, testApprover(), at(11), "")
	assert.Error(t, err)
	var conflict *generic.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, string(generic.StatusRejected), conflict.Observed)
	assert.Equal(t, generic.StatusRejected, a.Status, "terminal status must not change")
}

func TestApproval_DoubleApprove_SecondGetsConflict(t *testing.T) {
	// GIVEN: Two admins racing on the same pending request
	// WHEN: Both resolve (serialized by the store transaction)
	// THEN: Exactly one success; the loser sees ConflictError and the first
	//       decision stands

	a := generic.NewApproval("emp-1", at(9))
	first := generic.Actor{ID: "mgr-1", Capabilities: []generic.Capability{"approve:test"}}
	second := generic.Actor{ID: "mgr-2", Capabilities: []generic.Capability{"approve:test"}}

	require.NoError(t, a.Resolve(kindTest, generic.DecisionApprove, first, at(10), ""))

	err := a.Resolve(kindTest, generic.DecisionReject, second, at(10), "")
	assert.ErrorIs(t, err, generic.ErrConflict)
	assert.Equal(t, generic.StatusApproved, a.Status)
	assert.Equal(t, "mgr-1", a.ApprovedBy, "first decision must stick")
}

// =============================================================================
// AUTHORIZATION
// =============================================================================

func TestApproval_ActorWithoutCapability_Rejected(t *testing.T) {
	// GIVEN: An actor without the kind's capability
	// WHEN: They try to resolve
	// THEN: AuthorizationError, checked before any state change

	a := generic.NewApproval("emp-1", at(9))
	intern := generic.Actor{ID: "intern-1"}

	err := a.Resolve(kindTest, generic.DecisionApprove, intern, at(10), "")

	assert.ErrorIs(t, err, generic.ErrAuthorization)
	var authErr *generic.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "intern-1", authErr.ActorID)
	assert.Equal(t, generic.StatusPending, a.Status, "no state change on auth failure")
}

func TestApproval_UnregisteredKind_Fails(t *testing.T) {
	a := generic.NewApproval("emp-1", at(9))
	err := a.Resolve(generic.Kind("never_registered"), generic.DecisionApprove, testApprover(), at(10), "")
	assert.Error(t, err)
	assert.Equal(t, generic.StatusPending, a.Status)
}

func TestApproval_UnknownDecision_Fails(t *testing.T) {
	a := generic.NewApproval("emp-1", at(9))
	err := a.Resolve(kindTest, generic.Decision("defer"), testApprover(), at(10), "")
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Equal(t, generic.StatusPending, a.Status)
}

// =============================================================================
// STATUS SEMANTICS
// =============================================================================

func TestApprovalStatus_Terminal(t *testing.T) {
	assert.False(t, generic.StatusPending.Terminal())
	assert.True(t, generic.StatusApproved.Terminal())
	assert.True(t, generic.StatusRejected.Terminal())
}
