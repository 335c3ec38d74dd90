package requests

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookhub/pkg/books"
	"github.com/shishobooks/bookhub/pkg/categories"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/htmlutil"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/storage"
)

// ContributionSpec is a proposed book together with its files.
type ContributionSpec struct {
	Title       string
	Author      string
	Description *string
	ISBN        *string
	CategoryIDs []int
	Cover       *storage.Upload
	Files       []*storage.Upload
}

// LookupSpec asks for a book by metadata alone.
type LookupSpec struct {
	Title       string
	Author      string
	Description *string
	ISBN        *string
	CategoryIDs []int
}

// Workflow moves requests through PENDING to APPROVED or REJECTED. The
// acting user is always passed in by the caller.
type Workflow struct {
	requests    *Service
	bookService *books.Service
	manager     *books.Manager
	categories  *categories.Service
	store       *storage.Store
}

func NewWorkflow(requests *Service, bookService *books.Service, manager *books.Manager, categoryService *categories.Service, store *storage.Store) *Workflow {
	return &Workflow{
		requests:    requests,
		bookService: bookService,
		manager:     manager,
		categories:  categoryService,
		store:       store,
	}
}

// SubmitContribution uploads every file up front and records a pending
// CONTRIBUTION. Any invalid file or failed upload fails the whole
// submission and no request is stored.
func (w *Workflow) SubmitContribution(ctx context.Context, submitter *models.User, spec ContributionSpec) (*models.Request, error) {
	req, err := w.newRequest(ctx, submitter, models.RequestTypeContribution, spec.Title, spec.Author, spec.Description, spec.ISBN, spec.CategoryIDs)
	if err != nil {
		return nil, err
	}
	if len(spec.Files) == 0 {
		return nil, errcodes.ValidationError("At least one book file is required.")
	}

	resources, err := w.store.UploadSet(ctx, spec.Cover, spec.Files)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resources))
	for _, r := range resources {
		urls = append(urls, r.ContentURL)
	}

	files := urls
	if spec.Cover != nil {
		req.CoverImageURL = &urls[0]
		files = urls[1:]
	}
	req.BookFileURLs = models.StringList(files)

	if err := w.requests.CreateRequest(ctx, req); err != nil {
		w.store.DeleteBestEffort(ctx, urls...)
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("contribution submitted", logger.Data{"request_id": req.ID, "user_id": submitter.ID, "files": len(files)})
	return req, nil
}

// SubmitLookup records a pending metadata-only LOOKUP.
func (w *Workflow) SubmitLookup(ctx context.Context, submitter *models.User, spec LookupSpec) (*models.Request, error) {
	req, err := w.newRequest(ctx, submitter, models.RequestTypeLookup, spec.Title, spec.Author, spec.Description, spec.ISBN, spec.CategoryIDs)
	if err != nil {
		return nil, err
	}

	if err := w.requests.CreateRequest(ctx, req); err != nil {
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("lookup submitted", logger.Data{"request_id": req.ID, "user_id": submitter.ID})
	return req, nil
}

// Approve settles a pending request. A LOOKUP is linked to createdBookID,
// which the moderator created separately. A CONTRIBUTION becomes a new book
// built from the blobs already uploaded for it.
func (w *Workflow) Approve(ctx context.Context, actor *models.User, id int, createdBookID *int) (*models.Request, error) {
	req, err := w.pending(ctx, id, "approved")
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	switch req.Type {
	case models.RequestTypeLookup:
		if createdBookID == nil || *createdBookID <= 0 {
			return nil, errcodes.ValidationError("created_book_id is required to approve a lookup request.")
		}
		book, err := w.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: createdBookID})
		if err != nil {
			return nil, err
		}
		req.CreatedBookID = &book.ID

		req.Status = models.RequestStatusApproved
		if err := w.requests.TransitionRequest(ctx, req, "created_book_id"); err != nil {
			return nil, err
		}

	case models.RequestTypeContribution:
		book, err := w.manager.CreateFromStored(ctx, actor, books.StoredBookSpec{
			Title:         req.Title,
			Author:        req.Author,
			Description:   req.Description,
			ISBN:          req.ISBN,
			CategoryIDs:   req.CategoryIDs,
			CoverImageURL: req.CoverImageURL,
			BookFileURLs:  req.BookFileURLs,
			AddedBy:       req.UserID,
		})
		if err != nil {
			return nil, err
		}
		req.CreatedBookID = &book.ID

		req.Status = models.RequestStatusApproved
		if err := w.requests.TransitionRequest(ctx, req, "created_book_id"); err != nil {
			// Settled concurrently. The blobs stay with whoever won.
			log.Err(err).Warn("request settled concurrently; removing duplicate book", logger.Data{"request_id": req.ID, "book_id": book.ID})
			if derr := w.manager.DeleteRecord(ctx, book.ID); derr != nil {
				log.Err(derr).Error("could not remove duplicate book", logger.Data{"book_id": book.ID})
			}
			return nil, err
		}

	default:
		return nil, errors.Errorf("unknown request type %q", req.Type)
	}

	log.Info("request approved", logger.Data{"request_id": req.ID, "type": req.Type, "book_id": *req.CreatedBookID, "moderator_id": actor.ID})
	return req, nil
}

// Reject settles a pending request with a reason. Once the request is
// REJECTED, a CONTRIBUTION's blobs are deleted on a best-effort basis;
// category counts are never touched.
func (w *Workflow) Reject(ctx context.Context, actor *models.User, id int, reason string) (*models.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errcodes.ValidationError("A rejection reason is required.")
	}
	req, err := w.pending(ctx, id, "rejected")
	if err != nil {
		return nil, err
	}

	req.Status = models.RequestStatusRejected
	req.RejectionReason = &reason
	if err := w.requests.TransitionRequest(ctx, req, "rejection_reason"); err != nil {
		return nil, err
	}

	if req.Type == models.RequestTypeContribution {
		urls := make([]string, 0, len(req.BookFileURLs)+1)
		if req.CoverImageURL != nil {
			urls = append(urls, *req.CoverImageURL)
		}
		urls = append(urls, req.BookFileURLs...)
		w.store.DeleteBestEffort(ctx, urls...)
	}

	logger.FromContext(ctx).Info("request rejected", logger.Data{"request_id": req.ID, "type": req.Type, "moderator_id": actor.ID})
	return req, nil
}

// RetrieveFor returns a request to user. Only moderators may read requests
// submitted by someone else.
func (w *Workflow) RetrieveFor(ctx context.Context, user *models.User, id int) (*models.Request, error) {
	req, err := w.requests.RetrieveRequest(ctx, RetrieveRequestOptions{ID: &id})
	if err != nil {
		return nil, err
	}
	if req.UserID != user.ID && !user.HasPermission(models.ResourceRequests, models.OperationModerate) {
		return nil, errcodes.Forbidden("Reading another user's request")
	}
	return req, nil
}

func (w *Workflow) newRequest(ctx context.Context, submitter *models.User, requestType, title, author string, description, isbn *string, categoryIDs []int) (*models.Request, error) {
	if err := w.categories.ValidateCategoriesExist(ctx, categoryIDs); err != nil {
		return nil, err
	}
	normalized, err := books.NormalizeISBN(isbn)
	if err != nil {
		return nil, err
	}

	return &models.Request{
		Type:        requestType,
		Status:      models.RequestStatusPending,
		Title:       strings.TrimSpace(title),
		Author:      strings.TrimSpace(author),
		Description: htmlutil.SanitizeOptional(description),
		ISBN:        normalized,
		CategoryIDs: models.IntList(uniqueInts(categoryIDs)),
		UserID:      submitter.ID,
	}, nil
}

func (w *Workflow) pending(ctx context.Context, id int, verb string) (*models.Request, error) {
	req, err := w.requests.RetrieveRequest(ctx, RetrieveRequestOptions{ID: &id})
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, errcodes.InvalidState("Only pending requests can be " + verb + ".")
	}
	return req, nil
}

func uniqueInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
