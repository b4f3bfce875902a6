package store

import "time"

// SocialMedia holds a kiger's profile links. Every field is optional;
// a nil *SocialMedia means the submission carried no social media block at
// all, which is distinct from an empty struct.
type SocialMedia struct {
	Instagram *string `json:"instagram,omitempty"`
	Twitter   *string `json:"twitter,omitempty"`
	Facebook  *string `json:"facebook,omitempty"`
	TikTok    *string `json:"tiktok,omitempty"`
	Pixiv     *string `json:"pixiv,omitempty"`
	Website   *string `json:"website,omitempty"`
}

// MakerSocialMedia is the maker variant of SocialMedia (shop links instead
// of fan platforms).
type MakerSocialMedia struct {
	Twitter  *string `json:"twitter,omitempty"`
	Facebook *string `json:"facebook,omitempty"`
	Taobao   *string `json:"taobao,omitempty"`
	Amazon   *string `json:"amazon,omitempty"`
	Website  *string `json:"website,omitempty"`
}

// Source identifies the work a character comes from.
type Source struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	ReleaseYear int    `json:"releaseYear"`
}

type Kiger struct {
	ID           string
	Name         string
	Bio          string
	ProfileImage string
	Position     string
	IsActive     bool
	SocialMedia  *SocialMedia
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Character struct {
	ID            int64
	OriginalName  string
	Name          string
	Type          string
	OfficialImage string
	Source        *Source
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Maker struct {
	ID           int64
	OriginalName string
	Name         string
	Avatar       string
	SocialMedia  *MakerSocialMedia
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// KigerCharacterLink joins a kiger to a canonical character. Maker is free
// text, not a foreign key. Link rows are always rewritten wholesale when a
// kiger's character set changes, never patched.
type KigerCharacterLink struct {
	ID          int64
	KigerID     string
	CharacterID int64
	Maker       string
	Images      []string
}

// Pending row status values.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// CharacterReference is a character entry inside a kiger submission, stored
// verbatim on the pending row. CharacterID is the raw submitted value (may
// not resolve); CharacterData is an embedded draft for characters that do
// not exist yet.
type CharacterReference struct {
	CharacterID   string          `json:"characterId"`
	Maker         *string         `json:"maker,omitempty"`
	Images        []string        `json:"images"`
	CharacterData *CharacterDraft `json:"characterData,omitempty"`
}

// CharacterDraft is the submitted form of a character, before it has a
// store-assigned id.
type CharacterDraft struct {
	Name          string  `json:"name"`
	OriginalName  string  `json:"originalName"`
	Type          string  `json:"type"`
	OfficialImage string  `json:"officialImage"`
	Source        *Source `json:"source"`
}

// PendingKiger is one in-flight kiger submission. Multiple pending rows may
// target the same canonical kiger; each is reviewed on its own.
type PendingKiger struct {
	ID           string
	ReferenceID  *string
	Name         string
	Bio          string
	ProfileImage string
	Position     string
	IsActive     bool
	SocialMedia  *SocialMedia
	Characters   []CharacterReference
	// AutoCreatedCharacters lists PendingCharacter ids this submission
	// spawned for unresolved references.
	AutoCreatedCharacters []int64
	// ChangedFields is nil for a first submission against the target id,
	// meaning every field applies on approval. An empty non-nil list is a
	// no-op resubmission and still reviewable.
	ChangedFields []string
	Status        string
	SubmittedAt   time.Time
	ReviewedAt    *time.Time
}

type PendingCharacter struct {
	ID            int64
	OriginalName  string
	Name          string
	Type          string
	OfficialImage string
	Source        *Source
	ChangedFields []string
	Status        string
	SubmittedAt   time.Time
	ReviewedAt    *time.Time
}

type PendingMaker struct {
	ID            int64
	OriginalName  string
	Name          string
	Avatar        string
	SocialMedia   *MakerSocialMedia
	ChangedFields []string
	Status        string
	SubmittedAt   time.Time
	ReviewedAt    *time.Time
}

type Admin struct {
	ID             int64
	Username       string
	HashedPassword string
	CreatedAt      time.Time
}
