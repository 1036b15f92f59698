package workflowrequest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkflowRequest_IsOpen(t *testing.T) {
	cases := []struct {
		status Status
		open   bool
	}{
		{StatusAwaitingApproval, true},
		{StatusAwaitingEdit, true},
		{StatusApproved, false},
		{StatusDenied, false},
		{Status(""), true},
		{Status("Denied"), true}, // only canonical enum values close a request
	}
	for _, tc := range cases {
		wr := &WorkflowRequest{Status: tc.status}
		require.Equal(t, tc.open, wr.IsOpen(), "status %q", tc.status)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	require.True(t, StatusApproved.IsTerminal())
	require.True(t, StatusDenied.IsTerminal())
	require.False(t, StatusAwaitingApproval.IsTerminal())
	require.False(t, StatusAwaitingEdit.IsTerminal())
}

func TestStatus_Description(t *testing.T) {
	require.Equal(t, "Awaiting Approval", StatusAwaitingApproval.Description())
	require.Equal(t, "Approved", StatusApproved.Description())
	require.Equal(t, "Denied", StatusDenied.Description())
	require.Equal(t, "Awaiting Edit", StatusAwaitingEdit.Description())
	require.Equal(t, "Unknown", Status("bogus").Description())
}

func TestType_Title(t *testing.T) {
	require.Equal(t, "Publication Request", TypePublication.Title())
	require.Equal(t, "Deletion Request", TypeDeletion.Title())
	require.Equal(t, "Workflow Request", Type("").Title())
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusAwaitingApproval, StatusApproved, StatusDenied, StatusAwaitingEdit} {
		require.True(t, s.Valid())
	}
	require.False(t, Status("open").Valid())
}
