package workflow

import (
	"context"
	"fmt"

	"kigurumi/api/internal/store"
)

// DirectUpdateKiger overwrites a canonical kiger without going through the
// pending queue. Admin-only; the moderated path is SubmitKiger plus
// ReviewKiger. Character links are rewritten only when the payload carries
// references.
func (s *Service) DirectUpdateKiger(ctx context.Context, id string, draft KigerDraft) (store.Kiger, []store.KigerCharacterLink, error) {
	if draft.Name == "" {
		return store.Kiger{}, nil, validationError("kiger name is required")
	}

	now := s.now()
	var (
		updated store.Kiger
		links   []store.KigerCharacterLink
	)

	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetKiger(ctx, id)
		if isNoRows(err) {
			return fmt.Errorf("%w: kiger %s", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get kiger %s: %w", id, err)
		}

		existing.Name = draft.Name
		existing.Bio = draft.Bio
		existing.ProfileImage = draft.ProfileImage
		existing.Position = draft.Position
		existing.IsActive = draft.IsActive
		existing.SocialMedia = draft.SocialMedia
		existing.UpdatedAt = now
		if err := tx.UpdateKiger(ctx, existing); err != nil {
			return err
		}
		updated = existing

		if len(draft.Characters) > 0 {
			if err := s.rewriteKigerLinks(ctx, tx, id, draft.Characters); err != nil {
				return err
			}
		}
		links, err = tx.ListKigerLinks(ctx, id)
		return err
	})
	if err != nil {
		return store.Kiger{}, nil, err
	}

	s.invalidate(ctx, CacheKeyKiger(id), CacheKeyKigers)
	return updated, links, nil
}

// DirectUpdateCharacter overwrites a canonical character, bypassing the queue.
func (s *Service) DirectUpdateCharacter(ctx context.Context, id int64, draft store.CharacterDraft) (store.Character, error) {
	if draft.Name == "" || draft.Type == "" {
		return store.Character{}, validationError("character name and type are required")
	}

	now := s.now()
	var updated store.Character

	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetCharacter(ctx, id)
		if isNoRows(err) {
			return fmt.Errorf("%w: character %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get character %d: %w", id, err)
		}

		existing.Name = draft.Name
		existing.Type = draft.Type
		existing.OfficialImage = draft.OfficialImage
		existing.Source = draft.Source
		existing.UpdatedAt = now
		if err := tx.UpdateCharacter(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return store.Character{}, err
	}

	s.invalidate(ctx, CacheKeyCharacter(id), CacheKeyCharacters)
	return updated, nil
}

// DirectUpdateMaker overwrites a canonical maker, bypassing the queue.
func (s *Service) DirectUpdateMaker(ctx context.Context, id int64, draft MakerDraft) (store.Maker, error) {
	if draft.Name == "" {
		return store.Maker{}, validationError("maker name is required")
	}

	now := s.now()
	var updated store.Maker

	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetMaker(ctx, id)
		if isNoRows(err) {
			return fmt.Errorf("%w: maker %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get maker %d: %w", id, err)
		}

		existing.Name = draft.Name
		existing.Avatar = draft.Avatar
		existing.SocialMedia = draft.SocialMedia
		existing.UpdatedAt = now
		if err := tx.UpdateMaker(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return store.Maker{}, err
	}

	s.invalidate(ctx, CacheKeyMaker(id), CacheKeyMakers)
	return updated, nil
}
