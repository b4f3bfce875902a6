package workflow

import (
	"context"
	"fmt"
	"time"

	"kigurumi/api/internal/store"
)

// ReviewResult reports the terminal status a review left the pending row in.
type ReviewResult struct {
	Status string
}

func validateAction(action string) error {
	if action != ActionApprove && action != ActionReject {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return nil
}

// ReviewKiger applies an admin decision to one pending kiger row. Approval
// merges the row's changed fields into the canonical kiger (creating it when
// absent), cascades approval to auto-created pending characters, rewrites
// the character links when the submission touched them, and stamps the row
// approved. Everything runs in one transaction; cache invalidation happens
// after commit.
//
// A row that was already reviewed can be reviewed again: approve reapplies
// its changed fields against current canonical state, reject just restamps.
func (s *Service) ReviewKiger(ctx context.Context, pendingID, action string) (ReviewResult, error) {
	if err := validateAction(action); err != nil {
		return ReviewResult{}, err
	}

	now := s.now()
	targetID := pendingID

	err := s.store.WithTx(ctx, func(tx Store) error {
		pending, err := tx.GetPendingKiger(ctx, pendingID)
		if isNoRows(err) {
			return fmt.Errorf("%w: pending kiger %s", ErrNotFound, pendingID)
		}
		if err != nil {
			return fmt.Errorf("get pending kiger: %w", err)
		}

		if action == ActionReject {
			return tx.MarkPendingKigerReviewed(ctx, pendingID, store.StatusRejected, now)
		}

		if pending.ReferenceID != nil {
			targetID = *pending.ReferenceID
		}

		existing, err := tx.GetKiger(ctx, targetID)
		switch {
		case err == nil:
			applyKigerFields(&existing, pending, pending.ChangedFields)
			existing.UpdatedAt = now
			if err := tx.UpdateKiger(ctx, existing); err != nil {
				return err
			}
		case isNoRows(err):
			created := store.Kiger{
				ID:           targetID,
				Name:         pending.Name,
				Bio:          pending.Bio,
				ProfileImage: pending.ProfileImage,
				Position:     pending.Position,
				IsActive:     pending.IsActive,
				SocialMedia:  pending.SocialMedia,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.InsertKiger(ctx, created); err != nil {
				return err
			}
		default:
			return fmt.Errorf("get kiger %s: %w", targetID, err)
		}

		if err := s.approveAutoCreated(ctx, tx, pending.AutoCreatedCharacters, now); err != nil {
			return err
		}

		rewriteLinks := pending.ChangedFields == nil || containsField(pending.ChangedFields, fieldCharacters)
		if rewriteLinks && len(pending.Characters) > 0 {
			if err := s.rewriteKigerLinks(ctx, tx, targetID, pending.Characters); err != nil {
				return err
			}
		}

		return tx.MarkPendingKigerReviewed(ctx, pendingID, store.StatusApproved, now)
	})
	if err != nil {
		return ReviewResult{}, err
	}

	if action == ActionApprove {
		s.invalidate(ctx, CacheKeyKiger(targetID), CacheKeyKigers)
		return ReviewResult{Status: store.StatusApproved}, nil
	}
	return ReviewResult{Status: store.StatusRejected}, nil
}

// approveAutoCreated cascades a kiger approval to the pending characters
// the submission spawned. Rows that were reviewed on their own in the
// meantime are left alone; a canonical character that appeared under the
// same original name is reused rather than duplicated.
func (s *Service) approveAutoCreated(ctx context.Context, tx Store, ids []int64, now time.Time) error {
	for _, id := range ids {
		pc, err := tx.GetPendingCharacter(ctx, id)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get pending character %d: %w", id, err)
		}
		if pc.Status != store.StatusPending {
			continue
		}

		_, err = tx.GetCharacterByOriginalName(ctx, pc.OriginalName)
		if isNoRows(err) {
			if _, err := tx.InsertCharacter(ctx, store.Character{
				OriginalName:  pc.OriginalName,
				Name:          pc.Name,
				Type:          pc.Type,
				OfficialImage: pc.OfficialImage,
				Source:        pc.Source,
				CreatedAt:     now,
				UpdatedAt:     now,
			}); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("lookup character %s: %w", pc.OriginalName, err)
		}

		if err := tx.MarkPendingCharacterReviewed(ctx, id, store.StatusApproved, now); err != nil {
			return err
		}
	}
	return nil
}

// rewriteKigerLinks replaces the full link set for a kiger. References that
// resolve to no canonical character are dropped, not errors.
func (s *Service) rewriteKigerLinks(ctx context.Context, tx Store, kigerID string, refs []store.CharacterReference) error {
	if err := tx.DeleteKigerLinks(ctx, kigerID); err != nil {
		return err
	}
	for _, ref := range refs {
		char, ok, err := resolveCharacter(ctx, tx, ref)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		link := store.KigerCharacterLink{
			KigerID:     kigerID,
			CharacterID: char.ID,
			Images:      ref.Images,
		}
		if ref.Maker != nil {
			link.Maker = *ref.Maker
		}
		if err := tx.InsertKigerLink(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

// ReviewCharacter applies an admin decision to one pending character row.
func (s *Service) ReviewCharacter(ctx context.Context, pendingID int64, action string) (ReviewResult, error) {
	if err := validateAction(action); err != nil {
		return ReviewResult{}, err
	}

	now := s.now()
	var canonicalID int64

	err := s.store.WithTx(ctx, func(tx Store) error {
		pending, err := tx.GetPendingCharacter(ctx, pendingID)
		if isNoRows(err) {
			return fmt.Errorf("%w: pending character %d", ErrNotFound, pendingID)
		}
		if err != nil {
			return fmt.Errorf("get pending character: %w", err)
		}

		if action == ActionReject {
			return tx.MarkPendingCharacterReviewed(ctx, pendingID, store.StatusRejected, now)
		}

		existing, err := tx.GetCharacterByOriginalName(ctx, pending.OriginalName)
		switch {
		case err == nil:
			applyCharacterFields(&existing, pending, pending.ChangedFields)
			existing.UpdatedAt = now
			if err := tx.UpdateCharacter(ctx, existing); err != nil {
				return err
			}
			canonicalID = existing.ID
		case isNoRows(err):
			id, err := tx.InsertCharacter(ctx, store.Character{
				OriginalName:  pending.OriginalName,
				Name:          pending.Name,
				Type:          pending.Type,
				OfficialImage: pending.OfficialImage,
				Source:        pending.Source,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return err
			}
			canonicalID = id
		default:
			return fmt.Errorf("get character %s: %w", pending.OriginalName, err)
		}

		return tx.MarkPendingCharacterReviewed(ctx, pendingID, store.StatusApproved, now)
	})
	if err != nil {
		return ReviewResult{}, err
	}

	if action == ActionApprove {
		s.invalidate(ctx, CacheKeyCharacter(canonicalID), CacheKeyCharacters)
		return ReviewResult{Status: store.StatusApproved}, nil
	}
	return ReviewResult{Status: store.StatusRejected}, nil
}

// ReviewMaker applies an admin decision to one pending maker row.
func (s *Service) ReviewMaker(ctx context.Context, pendingID int64, action string) (ReviewResult, error) {
	if err := validateAction(action); err != nil {
		return ReviewResult{}, err
	}

	now := s.now()
	var canonicalID int64

	err := s.store.WithTx(ctx, func(tx Store) error {
		pending, err := tx.GetPendingMaker(ctx, pendingID)
		if isNoRows(err) {
			return fmt.Errorf("%w: pending maker %d", ErrNotFound, pendingID)
		}
		if err != nil {
			return fmt.Errorf("get pending maker: %w", err)
		}

		if action == ActionReject {
			return tx.MarkPendingMakerReviewed(ctx, pendingID, store.StatusRejected, now)
		}

		existing, err := tx.GetMakerByOriginalName(ctx, pending.OriginalName)
		switch {
		case err == nil:
			applyMakerFields(&existing, pending, pending.ChangedFields)
			existing.UpdatedAt = now
			if err := tx.UpdateMaker(ctx, existing); err != nil {
				return err
			}
			canonicalID = existing.ID
		case isNoRows(err):
			id, err := tx.InsertMaker(ctx, store.Maker{
				OriginalName: pending.OriginalName,
				Name:         pending.Name,
				Avatar:       pending.Avatar,
				SocialMedia:  pending.SocialMedia,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			if err != nil {
				return err
			}
			canonicalID = id
		default:
			return fmt.Errorf("get maker %s: %w", pending.OriginalName, err)
		}

		return tx.MarkPendingMakerReviewed(ctx, pendingID, store.StatusApproved, now)
	})
	if err != nil {
		return ReviewResult{}, err
	}

	if action == ActionApprove {
		s.invalidate(ctx, CacheKeyMaker(canonicalID), CacheKeyMakers)
		return ReviewResult{Status: store.StatusApproved}, nil
	}
	return ReviewResult{Status: store.StatusRejected}, nil
}
