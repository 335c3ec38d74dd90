package requests

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveRequestOptions struct {
	ID *int
}

type ListRequestsOptions struct {
	Limit  *int
	Offset *int
	Type   *string
	Status *string
	UserID *int

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateRequest(ctx context.Context, req *models.Request) error {
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	if req.CategoryIDs == nil {
		req.CategoryIDs = models.IntList{}
	}
	if req.BookFileURLs == nil {
		req.BookFileURLs = models.StringList{}
	}

	_, err := svc.db.
		NewInsert().
		Model(req).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveRequest(ctx context.Context, opts RetrieveRequestOptions) (*models.Request, error) {
	req := &models.Request{}

	q := svc.db.
		NewSelect().
		Model(req)

	if opts.ID != nil {
		q = q.Where("rq.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Request")
		}
		return nil, errors.WithStack(err)
	}

	return req, nil
}

func (svc *Service) ListRequests(ctx context.Context, opts ListRequestsOptions) ([]*models.Request, error) {
	r, _, err := svc.listRequestsWithTotal(ctx, opts)
	return r, errors.WithStack(err)
}

func (svc *Service) ListRequestsWithTotal(ctx context.Context, opts ListRequestsOptions) ([]*models.Request, int, error) {
	opts.includeTotal = true
	return svc.listRequestsWithTotal(ctx, opts)
}

func (svc *Service) listRequestsWithTotal(ctx context.Context, opts ListRequestsOptions) ([]*models.Request, int, error) {
	reqs := []*models.Request{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&reqs).
		Order("rq.created_at DESC", "rq.id DESC")

	if opts.Type != nil {
		q = q.Where("rq.type = ?", *opts.Type)
	}
	if opts.Status != nil {
		q = q.Where("rq.status = ?", *opts.Status)
	}
	if opts.UserID != nil {
		q = q.Where("rq.user_id = ?", *opts.UserID)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return reqs, total, nil
}

// TransitionRequest writes req.Status and the given columns, but only while
// the stored row is still PENDING. Losing that race is InvalidState.
func (svc *Service) TransitionRequest(ctx context.Context, req *models.Request, columns ...string) error {
	req.UpdatedAt = time.Now()
	columns = append(columns, "status", "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(req).
		Column(columns...).
		WherePK().
		Where("status = ?", models.RequestStatusPending).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.InvalidState("Only pending requests can be moderated.")
	}

	return nil
}
