/*
coordinator.go - Auto-Link Coordinator

PURPOSE:
  Keeps one LeaveOfAbsence and its derived TrainingWaiver consistent, as a
  state machine over the pair:

    no-waiver ── create (non-exempt) ──> linked-active
    no-waiver ── create (exempt) ──────> exempt
    linked-active ── update dates ─────> linked-active (dates propagated)
    linked-active ── deactivate ───────> linked-inactive
    linked-active ── set exempt ───────> exempt (waiver deactivated)
    exempt ── clear exempt ────────────> linked-active (fresh waiver)

ATOMICITY:
  Every transition runs inside a single WithTx block: the waiver write and
  the leave write commit together or not at all. A failure surfaces as
  compliance.ErrAtomicityFailure and the leave mutation must be treated as
  uncommitted. There is no asynchronous reconciliation.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thegspiro/the-logbook-sub005/compliance"
)

// Coordinator performs all leave mutations, maintaining the linked waiver.
type Coordinator struct {
	Store TxStore

	// now is swappable for tests.
	now func() time.Time
}

func NewCoordinator(store TxStore) *Coordinator {
	return &Coordinator{Store: store, now: time.Now}
}

// CreateLeaveInput carries the officer-supplied fields for a new leave.
type CreateLeaveInput struct {
	OrgID                    compliance.OrgID
	UserID                   compliance.UserID
	StartDate                compliance.Date
	EndDate                  *compliance.Date
	Type                     LeaveType
	Reason                   string
	ExemptFromTrainingWaiver bool
}

// CreateLeave records a new leave of absence. Unless exempt, it also creates
// the linked training waiver with identical dates in the same transaction.
func (c *Coordinator) CreateLeave(ctx context.Context, in CreateLeaveInput) (*LeaveOfAbsence, error) {
	if in.EndDate != nil && in.StartDate.After(*in.EndDate) {
		return nil, &compliance.InvalidPeriodError{Start: in.StartDate, End: *in.EndDate}
	}

	now := c.now().UTC()
	l := LeaveOfAbsence{
		ID:                       uuid.NewString(),
		OrgID:                    in.OrgID,
		UserID:                   in.UserID,
		StartDate:                in.StartDate,
		EndDate:                  in.EndDate,
		Type:                     in.Type,
		Reason:                   in.Reason,
		Active:                   true,
		ExemptFromTrainingWaiver: in.ExemptFromTrainingWaiver,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := c.Store.WithTx(ctx, func(s Store) error {
		if !l.ExemptFromTrainingWaiver {
			w := c.derivedWaiver(l)
			// Waiver first: an orphaned unlinked leave would silently
			// remove training credit protection.
			if err := s.CreateWaiver(ctx, w); err != nil {
				return err
			}
			l.LinkedWaiverID = &w.ID
		}
		return s.CreateLeave(ctx, l)
	})
	if err != nil {
		return nil, atomicity("create leave", err)
	}
	return &l, nil
}

// UpdateLeaveDates changes the leave's date range and propagates identical
// dates to the linked waiver.
func (c *Coordinator) UpdateLeaveDates(ctx context.Context, org compliance.OrgID, id string, start compliance.Date, end *compliance.Date) (*LeaveOfAbsence, error) {
	if end != nil && start.After(*end) {
		return nil, &compliance.InvalidPeriodError{Start: start, End: *end}
	}

	var updated *LeaveOfAbsence
	err := c.Store.WithTx(ctx, func(s Store) error {
		l, err := s.GetLeave(ctx, org, id)
		if err != nil {
			return err
		}

		l.StartDate = start
		l.EndDate = end
		l.UpdatedAt = c.now().UTC()

		if l.LinkState() == LinkActive {
			w, err := s.GetWaiver(ctx, org, *l.LinkedWaiverID)
			if err != nil {
				return err
			}
			w.StartDate = start
			w.EndDate = end
			w.UpdatedAt = l.UpdatedAt
			if err := s.UpdateWaiver(ctx, *w); err != nil {
				return err
			}
		}
		if err := s.UpdateLeave(ctx, *l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, atomicity("update leave dates", err)
	}
	return updated, nil
}

// SetExempt toggles the exempt-from-training-waiver flag.
// false->true deactivates the linked waiver; true->false creates a fresh one.
func (c *Coordinator) SetExempt(ctx context.Context, org compliance.OrgID, id string, exempt bool) (*LeaveOfAbsence, error) {
	var updated *LeaveOfAbsence
	err := c.Store.WithTx(ctx, func(s Store) error {
		l, err := s.GetLeave(ctx, org, id)
		if err != nil {
			return err
		}
		if l.ExemptFromTrainingWaiver == exempt {
			updated = l
			return nil // no transition
		}

		now := c.now().UTC()
		switch {
		case exempt && l.LinkState() == LinkActive:
			if err := c.deactivateLinkedWaiver(ctx, s, org, *l.LinkedWaiverID, now); err != nil {
				return err
			}
			l.LinkedWaiverID = nil

		case !exempt && l.Active:
			l.ExemptFromTrainingWaiver = false
			w := c.derivedWaiver(*l)
			w.CreatedAt = now
			w.UpdatedAt = now
			if err := s.CreateWaiver(ctx, w); err != nil {
				return err
			}
			l.LinkedWaiverID = &w.ID
		}

		l.ExemptFromTrainingWaiver = exempt
		l.UpdatedAt = now
		if err := s.UpdateLeave(ctx, *l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, atomicity("toggle leave exemption", err)
	}
	return updated, nil
}

// DeactivateLeave ends the leave and cascades deactivation to the linked
// waiver, leaving no orphaned active waiver behind.
func (c *Coordinator) DeactivateLeave(ctx context.Context, org compliance.OrgID, id string) (*LeaveOfAbsence, error) {
	var updated *LeaveOfAbsence
	err := c.Store.WithTx(ctx, func(s Store) error {
		l, err := s.GetLeave(ctx, org, id)
		if err != nil {
			return err
		}

		now := c.now().UTC()
		if l.LinkState() == LinkActive {
			if err := c.deactivateLinkedWaiver(ctx, s, org, *l.LinkedWaiverID, now); err != nil {
				return err
			}
		}

		l.Active = false
		l.UpdatedAt = now
		if err := s.UpdateLeave(ctx, *l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, atomicity("deactivate leave", err)
	}
	return updated, nil
}

// derivedWaiver builds the auto-created waiver: identical dates, unscoped
// (all requirements), back-referencing the leave.
func (c *Coordinator) derivedWaiver(l LeaveOfAbsence) TrainingWaiver {
	leaveID := l.ID
	return TrainingWaiver{
		ID:            uuid.NewString(),
		OrgID:         l.OrgID,
		UserID:        l.UserID,
		StartDate:     l.StartDate,
		EndDate:       l.EndDate,
		Reason:        fmt.Sprintf("auto-created for leave of absence (%s)", l.Type),
		Active:        true,
		LinkedLeaveID: &leaveID,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func (c *Coordinator) deactivateLinkedWaiver(ctx context.Context, s Store, org compliance.OrgID, waiverID string, now time.Time) error {
	w, err := s.GetWaiver(ctx, org, waiverID)
	if err != nil {
		return err
	}
	w.Active = false
	w.UpdatedAt = now
	return s.UpdateWaiver(ctx, *w)
}

// atomicity classifies transaction failures. Client errors (bad input,
// missing records) pass through untouched; anything else means the paired
// write did not commit.
func atomicity(op string, err error) error {
	if compliance.IsClientError(err) || compliance.IsNotFound(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, compliance.ErrAtomicityFailure, err)
}
