package workflow

import (
	"database/sql"
	"errors"
	"reflect"

	"kigurumi/api/internal/store"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Changed-field names, as stored on pending rows. Identity fields (id,
// reference_id, original_name) are never part of a diff.
const (
	fieldName          = "name"
	fieldBio           = "bio"
	fieldProfileImage  = "profile_image"
	fieldPosition      = "position"
	fieldIsActive      = "is_active"
	fieldSocialMedia   = "social_media"
	fieldCharacters    = "characters"
	fieldType          = "type"
	fieldOfficialImage = "official_image"
	fieldSource        = "source"
	fieldAvatar        = "avatar"
)

// kigerChangedFields diffs a kiger submission against the canonical record
// it edits. A nil existing means "no prior record": the result is nil and
// approval applies every field. The characters entry is special: it joins
// the set whenever the submission carries any character references, and at
// review time its presence means "rewrite all links".
func kigerChangedFields(existing *store.Kiger, draft KigerDraft) []string {
	if existing == nil {
		return nil
	}
	fields := []string{}
	if draft.Name != existing.Name {
		fields = append(fields, fieldName)
	}
	if draft.Bio != existing.Bio {
		fields = append(fields, fieldBio)
	}
	if draft.ProfileImage != existing.ProfileImage {
		fields = append(fields, fieldProfileImage)
	}
	if draft.Position != existing.Position {
		fields = append(fields, fieldPosition)
	}
	if draft.IsActive != existing.IsActive {
		fields = append(fields, fieldIsActive)
	}
	if !reflect.DeepEqual(draft.SocialMedia, existing.SocialMedia) {
		fields = append(fields, fieldSocialMedia)
	}
	if len(draft.Characters) > 0 {
		fields = append(fields, fieldCharacters)
	}
	return fields
}

func characterChangedFields(existing *store.Character, draft store.CharacterDraft) []string {
	if existing == nil {
		return nil
	}
	fields := []string{}
	if draft.Name != existing.Name {
		fields = append(fields, fieldName)
	}
	if draft.Type != existing.Type {
		fields = append(fields, fieldType)
	}
	if draft.OfficialImage != existing.OfficialImage {
		fields = append(fields, fieldOfficialImage)
	}
	if !reflect.DeepEqual(draft.Source, existing.Source) {
		fields = append(fields, fieldSource)
	}
	return fields
}

func makerChangedFields(existing *store.Maker, draft MakerDraft) []string {
	if existing == nil {
		return nil
	}
	fields := []string{}
	if draft.Name != existing.Name {
		fields = append(fields, fieldName)
	}
	if draft.Avatar != existing.Avatar {
		fields = append(fields, fieldAvatar)
	}
	if !reflect.DeepEqual(draft.SocialMedia, existing.SocialMedia) {
		fields = append(fields, fieldSocialMedia)
	}
	return fields
}

// applyKigerFields writes the pending snapshot onto the canonical record,
// restricted to fields (nil means all). Explicit switch, so the patchable
// field set stays compile-time checked.
func applyKigerFields(target *store.Kiger, pending store.PendingKiger, fields []string) {
	if fields == nil {
		fields = []string{fieldName, fieldBio, fieldProfileImage, fieldPosition, fieldIsActive, fieldSocialMedia}
	}
	for _, field := range fields {
		switch field {
		case fieldName:
			target.Name = pending.Name
		case fieldBio:
			target.Bio = pending.Bio
		case fieldProfileImage:
			target.ProfileImage = pending.ProfileImage
		case fieldPosition:
			target.Position = pending.Position
		case fieldIsActive:
			target.IsActive = pending.IsActive
		case fieldSocialMedia:
			target.SocialMedia = pending.SocialMedia
		case fieldCharacters:
			// Link rewrite is handled separately at review time.
		}
	}
}

func applyCharacterFields(target *store.Character, pending store.PendingCharacter, fields []string) {
	if fields == nil {
		fields = []string{fieldName, fieldType, fieldOfficialImage, fieldSource}
	}
	for _, field := range fields {
		switch field {
		case fieldName:
			target.Name = pending.Name
		case fieldType:
			target.Type = pending.Type
		case fieldOfficialImage:
			target.OfficialImage = pending.OfficialImage
		case fieldSource:
			target.Source = pending.Source
		}
	}
}

func applyMakerFields(target *store.Maker, pending store.PendingMaker, fields []string) {
	if fields == nil {
		fields = []string{fieldName, fieldAvatar, fieldSocialMedia}
	}
	for _, field := range fields {
		switch field {
		case fieldName:
			target.Name = pending.Name
		case fieldAvatar:
			target.Avatar = pending.Avatar
		case fieldSocialMedia:
			target.SocialMedia = pending.SocialMedia
		}
	}
}

func containsField(fields []string, name string) bool {
	for _, field := range fields {
		if field == name {
			return true
		}
	}
	return false
}
