package app

import (
	"database/sql"
	"errors"
	"time"

	"kigurumi/api/internal/store"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Wire representations. Field casing follows the historical catalog format
// existing clients depend on: camelCase throughout, except the capitalized
// Characters and Avatar keys and the snake_case submitted_at on pending rows.

type kigerView struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Bio          string             `json:"bio"`
	ProfileImage string             `json:"profileImage"`
	Position     string             `json:"position"`
	IsActive     bool               `json:"isActive"`
	SocialMedia  *store.SocialMedia `json:"socialMedia"`
	CreatedAt    string             `json:"createdAt"`
	UpdatedAt    string             `json:"updatedAt"`
}

type linkView struct {
	CharacterID int64    `json:"characterId"`
	Maker       *string  `json:"maker"`
	Images      []string `json:"images"`
}

type kigerDetailView struct {
	kigerView
	Characters []linkView `json:"Characters"`
}

type characterView struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	OriginalName  string        `json:"originalName"`
	Type          string        `json:"type"`
	OfficialImage string        `json:"officialImage"`
	Source        *store.Source `json:"source"`
}

type makerView struct {
	ID           int64                   `json:"id"`
	Name         string                  `json:"name"`
	OriginalName string                  `json:"originalName"`
	Avatar       string                  `json:"Avatar"`
	SocialMedia  *store.MakerSocialMedia `json:"socialMedia"`
}

type pendingKigerView struct {
	ID            string             `json:"id"`
	ReferenceID   *string            `json:"referenceId"`
	Name          string             `json:"name"`
	Bio           string             `json:"bio"`
	ProfileImage  string             `json:"profileImage"`
	Position      string             `json:"position"`
	IsActive      bool               `json:"isActive"`
	SocialMedia   *store.SocialMedia `json:"socialMedia"`
	Characters    []string           `json:"Characters"`
	ChangedFields []string           `json:"changedFields"`
	Status        string             `json:"status"`
	SubmittedAt   string             `json:"submitted_at"`
}

type pendingCharacterView struct {
	ID            int64         `json:"id"`
	OriginalName  string        `json:"originalName"`
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	OfficialImage string        `json:"officialImage"`
	Source        *store.Source `json:"source"`
	ChangedFields []string      `json:"changedFields"`
	Status        string        `json:"status"`
	SubmittedAt   string        `json:"submitted_at"`
}

type pendingMakerView struct {
	ID            int64                   `json:"id"`
	OriginalName  string                  `json:"originalName"`
	Name          string                  `json:"name"`
	Avatar        string                  `json:"Avatar"`
	SocialMedia   *store.MakerSocialMedia `json:"socialMedia"`
	ChangedFields []string                `json:"changedFields"`
	Status        string                  `json:"status"`
	SubmittedAt   string                  `json:"submitted_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toKigerView(item store.Kiger) kigerView {
	return kigerView{
		ID:           item.ID,
		Name:         item.Name,
		Bio:          item.Bio,
		ProfileImage: item.ProfileImage,
		Position:     item.Position,
		IsActive:     item.IsActive,
		SocialMedia:  item.SocialMedia,
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
}

func toLinkViews(links []store.KigerCharacterLink) []linkView {
	views := []linkView{}
	for _, link := range links {
		view := linkView{CharacterID: link.CharacterID, Images: link.Images}
		if view.Images == nil {
			view.Images = []string{}
		}
		if link.Maker != "" {
			maker := link.Maker
			view.Maker = &maker
		}
		views = append(views, view)
	}
	return views
}

func toKigerDetailView(item store.Kiger, links []store.KigerCharacterLink) kigerDetailView {
	return kigerDetailView{
		kigerView:  toKigerView(item),
		Characters: toLinkViews(links),
	}
}

func toCharacterView(item store.Character) characterView {
	return characterView{
		ID:            item.ID,
		Name:          item.Name,
		OriginalName:  item.OriginalName,
		Type:          item.Type,
		OfficialImage: item.OfficialImage,
		Source:        item.Source,
	}
}

func toMakerView(item store.Maker) makerView {
	return makerView{
		ID:           item.ID,
		Name:         item.Name,
		OriginalName: item.OriginalName,
		Avatar:       item.Avatar,
		SocialMedia:  item.SocialMedia,
	}
}

func toPendingKigerView(item store.PendingKiger) pendingKigerView {
	refs := []string{}
	for _, ref := range item.Characters {
		refs = append(refs, ref.CharacterID)
	}
	return pendingKigerView{
		ID:            item.ID,
		ReferenceID:   item.ReferenceID,
		Name:          item.Name,
		Bio:           item.Bio,
		ProfileImage:  item.ProfileImage,
		Position:      item.Position,
		IsActive:      item.IsActive,
		SocialMedia:   item.SocialMedia,
		Characters:    refs,
		ChangedFields: item.ChangedFields,
		Status:        item.Status,
		SubmittedAt:   formatTime(item.SubmittedAt),
	}
}

func toPendingCharacterView(item store.PendingCharacter) pendingCharacterView {
	return pendingCharacterView{
		ID:            item.ID,
		OriginalName:  item.OriginalName,
		Name:          item.Name,
		Type:          item.Type,
		OfficialImage: item.OfficialImage,
		Source:        item.Source,
		ChangedFields: item.ChangedFields,
		Status:        item.Status,
		SubmittedAt:   formatTime(item.SubmittedAt),
	}
}

func toPendingMakerView(item store.PendingMaker) pendingMakerView {
	return pendingMakerView{
		ID:            item.ID,
		OriginalName:  item.OriginalName,
		Name:          item.Name,
		Avatar:        item.Avatar,
		SocialMedia:   item.SocialMedia,
		ChangedFields: item.ChangedFields,
		Status:        item.Status,
		SubmittedAt:   formatTime(item.SubmittedAt),
	}
}
