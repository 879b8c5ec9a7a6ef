/*
store.go - Persistence interfaces for leave and waiver records

PURPOSE:
  Defines the interface between the leave domain and the database. The
  engine only reads these tables; the Coordinator is the single writer.

ATOMICITY:
  TxStore.WithTx supplies the transaction boundary the Coordinator needs:
  a leave and its derived waiver are written in one transaction, or neither
  is. An orphaned unlinked leave would silently remove training credit
  protection, so there is no partial-success mode.

IMPLEMENTATIONS:
  - store/sqlite: production
  - leave/store: in-memory, for tests
*/
package leave

import (
	"context"

	"github.com/thegspiro/the-logbook-sub005/compliance"
)

// LeaveStore persists leave-of-absence records.
type LeaveStore interface {
	CreateLeave(ctx context.Context, l LeaveOfAbsence) error
	UpdateLeave(ctx context.Context, l LeaveOfAbsence) error
	GetLeave(ctx context.Context, org compliance.OrgID, id string) (*LeaveOfAbsence, error)

	// ActiveLeavesByUser returns the member's active leaves.
	ActiveLeavesByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]LeaveOfAbsence, error)

	// ActiveLeavesByOrg returns every active leave in the organization in
	// one batch, for org-wide views.
	ActiveLeavesByOrg(ctx context.Context, org compliance.OrgID) ([]LeaveOfAbsence, error)
}

// WaiverStore persists training-waiver records.
type WaiverStore interface {
	CreateWaiver(ctx context.Context, w TrainingWaiver) error
	UpdateWaiver(ctx context.Context, w TrainingWaiver) error
	GetWaiver(ctx context.Context, org compliance.OrgID, id string) (*TrainingWaiver, error)

	ActiveWaiversByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]TrainingWaiver, error)
	ActiveWaiversByOrg(ctx context.Context, org compliance.OrgID) ([]TrainingWaiver, error)
}

// Store combines both record kinds.
type Store interface {
	LeaveStore
	WaiverStore
}

// TxStore adds the atomic transaction boundary.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view of the store. If fn
	// returns an error the transaction rolls back, otherwise it commits.
	WithTx(ctx context.Context, fn func(Store) error) error
}
