package requests

import (
	"testing"
	"time"

	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	other := testutils.CreateUser(t, f.db, models.RoleUser)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	seed := []*models.Request{
		{Type: models.RequestTypeContribution, Status: models.RequestStatusPending, UserID: f.submitter.ID},
		{Type: models.RequestTypeLookup, Status: models.RequestStatusPending, UserID: f.submitter.ID},
		{Type: models.RequestTypeLookup, Status: models.RequestStatusRejected, UserID: other.ID},
		{Type: models.RequestTypeContribution, Status: models.RequestStatusApproved, UserID: other.ID},
		{Type: models.RequestTypeLookup, Status: models.RequestStatusPending, UserID: other.ID},
	}
	for i, req := range seed {
		req.Title = "Request"
		req.Author = "Someone"
		req.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, f.requests.CreateRequest(ctx, req))
	}

	ids := func(reqs []*models.Request) []int {
		out := make([]int, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		opts     ListRequestsOptions
		expected []int
	}{
		{
			name:     "status alone, newest first",
			opts:     ListRequestsOptions{Status: ptr(models.RequestStatusPending)},
			expected: []int{seed[4].ID, seed[1].ID, seed[0].ID},
		},
		{
			name:     "type and status",
			opts:     ListRequestsOptions{Type: ptr(models.RequestTypeLookup), Status: ptr(models.RequestStatusPending)},
			expected: []int{seed[4].ID, seed[1].ID},
		},
		{
			name:     "by submitter",
			opts:     ListRequestsOptions{UserID: &other.ID},
			expected: []int{seed[4].ID, seed[3].ID, seed[2].ID},
		},
		{
			name:     "paged",
			opts:     ListRequestsOptions{Status: ptr(models.RequestStatusPending), Limit: ptr(1), Offset: ptr(1)},
			expected: []int{seed[1].ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := f.requests.ListRequests(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(reqs))
		})
	}

	_, total, err := f.requests.ListRequestsWithTotal(ctx, ListRequestsOptions{
		Status: ptr(models.RequestStatusPending),
		Limit:  ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestTransitionRequest_OnlyFromPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	pending := f.lookup(t, "The Lathe of Heaven")

	// Two moderators holding the same pending copy.
	a := f.reload(t, pending.ID)
	b := f.reload(t, pending.ID)

	a.Status = models.RequestStatusRejected
	a.RejectionReason = ptr("Out of print")
	require.NoError(t, f.requests.TransitionRequest(ctx, a, "rejection_reason"))

	b.Status = models.RequestStatusApproved
	b.CreatedBookID = ptr(1)
	err := f.requests.TransitionRequest(ctx, b, "created_book_id")
	assert.True(t, errcodes.HasCode(err, errcodes.CodeInvalidState), "got %v", err)

	stored := f.reload(t, pending.ID)
	assert.Equal(t, models.RequestStatusRejected, stored.Status)
	assert.Nil(t, stored.CreatedBookID)
}

func TestRetrieveRequest_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.requests.RetrieveRequest(testutils.Context(), RetrieveRequestOptions{ID: ptr(42)})
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound), "got %v", err)
}
