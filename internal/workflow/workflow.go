// Package workflow implements the moderation engine: public submissions
// land in a pending queue, an administrator approves or rejects each row,
// and approvals merge the submission's changed fields into the public
// catalog. Pending rows are never deleted; they double as the audit trail.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"kigurumi/api/internal/store"
	"kigurumi/api/internal/util"
)

// Review actions accepted by the review endpoints.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidAction = errors.New("invalid action")
	ErrValidation    = errors.New("validation error")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Store is the record-store surface the workflow engine needs. WithTx runs
// the callback against a transaction-scoped store; every review and
// submission executes inside exactly one such transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	GetKiger(ctx context.Context, id string) (store.Kiger, error)
	InsertKiger(ctx context.Context, item store.Kiger) error
	UpdateKiger(ctx context.Context, item store.Kiger) error
	ListKigerLinks(ctx context.Context, kigerID string) ([]store.KigerCharacterLink, error)
	DeleteKigerLinks(ctx context.Context, kigerID string) error
	InsertKigerLink(ctx context.Context, link store.KigerCharacterLink) error

	GetCharacter(ctx context.Context, id int64) (store.Character, error)
	GetCharacterByOriginalName(ctx context.Context, originalName string) (store.Character, error)
	InsertCharacter(ctx context.Context, item store.Character) (int64, error)
	UpdateCharacter(ctx context.Context, item store.Character) error

	GetMaker(ctx context.Context, id int64) (store.Maker, error)
	GetMakerByOriginalName(ctx context.Context, originalName string) (store.Maker, error)
	InsertMaker(ctx context.Context, item store.Maker) (int64, error)
	UpdateMaker(ctx context.Context, item store.Maker) error

	InsertPendingKiger(ctx context.Context, item store.PendingKiger) error
	GetPendingKiger(ctx context.Context, id string) (store.PendingKiger, error)
	MarkPendingKigerReviewed(ctx context.Context, id, status string, reviewedAt time.Time) error

	InsertPendingCharacter(ctx context.Context, item store.PendingCharacter) (int64, error)
	GetPendingCharacter(ctx context.Context, id int64) (store.PendingCharacter, error)
	FindPendingCharacterByOriginalName(ctx context.Context, originalName string) (*store.PendingCharacter, error)
	MarkPendingCharacterReviewed(ctx context.Context, id int64, status string, reviewedAt time.Time) error

	InsertPendingMaker(ctx context.Context, item store.PendingMaker) (int64, error)
	GetPendingMaker(ctx context.Context, id int64) (store.PendingMaker, error)
	MarkPendingMakerReviewed(ctx context.Context, id int64, status string, reviewedAt time.Time) error
}

// CacheInvalidator is the response-cache hook called after a successful
// commit. Invalidation is fire-and-forget: a failure leaves a stale entry
// bounded by the cache TTL, never a broken write.
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string)
	DeletePrefix(ctx context.Context, prefix string)
}

// Cache keys the engine invalidates. The app layer caches reads under the
// same names.
const (
	CacheKeyKigers     = "kigers"
	CacheKeyCharacters = "characters"
	CacheKeyMakers     = "makers"
)

func CacheKeyKiger(id string) string    { return "kiger:" + id }
func CacheKeyCharacter(id int64) string { return "character:" + strconv.FormatInt(id, 10) }
func CacheKeyMaker(id int64) string     { return "maker:" + strconv.FormatInt(id, 10) }

type Service struct {
	store Store
	cache CacheInvalidator
	now   func() time.Time
	newID func() string
}

func NewService(st Store, cache CacheInvalidator) *Service {
	return &Service{
		store: st,
		cache: cache,
		now:   time.Now,
		newID: util.NewSubmissionID,
	}
}

// KigerDraft is a kiger submission as it arrives on the wire. Field names
// follow the historical catalog format, capitalized Characters included.
type KigerDraft struct {
	ID           string                     `json:"id,omitempty"`
	ReferenceID  *string                    `json:"referenceId,omitempty"`
	Name         string                     `json:"name"`
	Bio          string                     `json:"bio"`
	ProfileImage string                     `json:"profileImage"`
	Position     string                     `json:"position"`
	IsActive     bool                       `json:"isActive"`
	SocialMedia  *store.SocialMedia         `json:"socialMedia"`
	Characters   []store.CharacterReference `json:"Characters"`
}

// MakerDraft is a maker submission. Avatar keeps its historical
// capitalization on the wire.
type MakerDraft struct {
	Name         string                  `json:"name"`
	OriginalName string                  `json:"originalName"`
	Avatar       string                  `json:"Avatar"`
	SocialMedia  *store.MakerSocialMedia `json:"socialMedia"`
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, keys...)
}

// resolveCharacter maps a submitted character reference to a canonical
// character: by numeric id first, then by the embedded draft's original
// name. A false return means the reference stays dangling.
func resolveCharacter(ctx context.Context, tx Store, ref store.CharacterReference) (store.Character, bool, error) {
	if id, err := strconv.ParseInt(ref.CharacterID, 10, 64); err == nil {
		char, err := tx.GetCharacter(ctx, id)
		if err == nil {
			return char, true, nil
		}
		if !isNoRows(err) {
			return store.Character{}, false, err
		}
	}
	if ref.CharacterData != nil && ref.CharacterData.OriginalName != "" {
		char, err := tx.GetCharacterByOriginalName(ctx, ref.CharacterData.OriginalName)
		if err == nil {
			return char, true, nil
		}
		if !isNoRows(err) {
			return store.Character{}, false, err
		}
	}
	return store.Character{}, false, nil
}
