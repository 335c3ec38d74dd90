package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RequestTypeContribution = "CONTRIBUTION"
	RequestTypeLookup       = "LOOKUP"
)

const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// Request is a user submission waiting on moderation. A CONTRIBUTION request
// holds the URLs of blobs it uploaded until it is approved (the blobs move to
// the created book) or rejected (the blobs are deleted).
type Request struct {
	bun.BaseModel `bun:"table:requests,alias:rq"`

	ID              int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt       time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Type            string     `bun:",notnull" json:"type"`
	Status          string     `bun:",notnull" json:"status"`
	Title           string     `bun:",notnull" json:"title"`
	Author          string     `bun:",notnull" json:"author"`
	Description     *string    `json:"description"`
	ISBN            *string    `bun:"isbn" json:"isbn"`
	CategoryIDs     IntList    `bun:"category_ids,notnull" json:"category_ids"`
	UserID          int        `bun:",notnull" json:"user_id"`
	CoverImageURL   *string    `bun:"cover_image_url" json:"cover_image_url"`
	BookFileURLs    StringList `bun:"book_file_urls,notnull" json:"book_file_urls"`
	RejectionReason *string    `json:"rejection_reason"`
	CreatedBookID   *int       `json:"created_book_id"`
}

func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}
