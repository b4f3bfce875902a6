package workflow

import (
	"context"
	"fmt"
	"time"

	"kigurumi/api/internal/store"
)

// SubmitKiger records a kiger submission as a fresh pending row. Earlier
// pending rows for the same target are left untouched; each is reviewed on
// its own and the last approval wins per field.
//
// Character references that resolve to nothing get a dependent
// PendingCharacter auto-created when they carry an embedded draft;
// references with neither a resolvable id nor a draft stay dangling and are
// skipped at approval time.
func (s *Service) SubmitKiger(ctx context.Context, draft KigerDraft) (store.PendingKiger, error) {
	if draft.Name == "" {
		return store.PendingKiger{}, validationError("kiger name is required")
	}

	now := s.now()
	pending := store.PendingKiger{
		ID:           draft.ID,
		ReferenceID:  draft.ReferenceID,
		Name:         draft.Name,
		Bio:          draft.Bio,
		ProfileImage: draft.ProfileImage,
		Position:     draft.Position,
		IsActive:     draft.IsActive,
		SocialMedia:  draft.SocialMedia,
		Characters:   draft.Characters,
		Status:       store.StatusPending,
		SubmittedAt:  now,
	}
	if pending.ID == "" {
		pending.ID = s.newID()
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if draft.ReferenceID != nil {
			existing, err := tx.GetKiger(ctx, *draft.ReferenceID)
			switch {
			case err == nil:
				pending.ChangedFields = kigerChangedFields(&existing, draft)
			case isNoRows(err):
				// Unknown reference: treat as a create, apply everything.
			default:
				return fmt.Errorf("lookup kiger %s: %w", *draft.ReferenceID, err)
			}
		}

		for _, ref := range draft.Characters {
			id, created, err := s.ensurePendingCharacter(ctx, tx, ref, now)
			if err != nil {
				return err
			}
			if created {
				pending.AutoCreatedCharacters = append(pending.AutoCreatedCharacters, id)
			}
		}

		return tx.InsertPendingKiger(ctx, pending)
	})
	if err != nil {
		return store.PendingKiger{}, err
	}
	return pending, nil
}

// ensurePendingCharacter auto-creates a PendingCharacter for an unresolved
// reference. Returns created=false when the reference already resolves, a
// matching pending row exists, or there is no embedded draft to create from.
func (s *Service) ensurePendingCharacter(ctx context.Context, tx Store, ref store.CharacterReference, now time.Time) (int64, bool, error) {
	if _, ok, err := resolveCharacter(ctx, tx, ref); err != nil {
		return 0, false, err
	} else if ok {
		return 0, false, nil
	}
	if ref.CharacterData == nil || ref.CharacterData.OriginalName == "" {
		return 0, false, nil
	}

	existing, err := tx.FindPendingCharacterByOriginalName(ctx, ref.CharacterData.OriginalName)
	if err != nil {
		return 0, false, err
	}
	if existing != nil {
		return 0, false, nil
	}

	id, err := tx.InsertPendingCharacter(ctx, store.PendingCharacter{
		OriginalName:  ref.CharacterData.OriginalName,
		Name:          ref.CharacterData.Name,
		Type:          ref.CharacterData.Type,
		OfficialImage: ref.CharacterData.OfficialImage,
		Source:        ref.CharacterData.Source,
		Status:        store.StatusPending,
		SubmittedAt:   now,
	})
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// SubmitCharacter records a character submission, diffed against the
// canonical character with the same original name.
func (s *Service) SubmitCharacter(ctx context.Context, draft store.CharacterDraft) (store.PendingCharacter, error) {
	if draft.Name == "" || draft.OriginalName == "" || draft.Type == "" {
		return store.PendingCharacter{}, validationError("character name, originalName and type are required")
	}
	if draft.Source == nil {
		return store.PendingCharacter{}, validationError("character source is required")
	}

	pending := store.PendingCharacter{
		OriginalName:  draft.OriginalName,
		Name:          draft.Name,
		Type:          draft.Type,
		OfficialImage: draft.OfficialImage,
		Source:        draft.Source,
		Status:        store.StatusPending,
		SubmittedAt:   s.now(),
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetCharacterByOriginalName(ctx, draft.OriginalName)
		switch {
		case err == nil:
			pending.ChangedFields = characterChangedFields(&existing, draft)
		case isNoRows(err):
		default:
			return fmt.Errorf("lookup character %s: %w", draft.OriginalName, err)
		}

		id, err := tx.InsertPendingCharacter(ctx, pending)
		if err != nil {
			return err
		}
		pending.ID = id
		return nil
	})
	if err != nil {
		return store.PendingCharacter{}, err
	}
	return pending, nil
}

// SubmitMaker records a maker submission, diffed against the canonical
// maker with the same original name.
func (s *Service) SubmitMaker(ctx context.Context, draft MakerDraft) (store.PendingMaker, error) {
	if draft.Name == "" || draft.OriginalName == "" {
		return store.PendingMaker{}, validationError("maker name and originalName are required")
	}

	pending := store.PendingMaker{
		OriginalName: draft.OriginalName,
		Name:         draft.Name,
		Avatar:       draft.Avatar,
		SocialMedia:  draft.SocialMedia,
		Status:       store.StatusPending,
		SubmittedAt:  s.now(),
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetMakerByOriginalName(ctx, draft.OriginalName)
		switch {
		case err == nil:
			pending.ChangedFields = makerChangedFields(&existing, draft)
		case isNoRows(err):
		default:
			return fmt.Errorf("lookup maker %s: %w", draft.OriginalName, err)
		}

		id, err := tx.InsertPendingMaker(ctx, pending)
		if err != nil {
			return err
		}
		pending.ID = id
		return nil
	})
	if err != nil {
		return store.PendingMaker{}, err
	}
	return pending, nil
}
