package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresStore struct {
	db *sql.DB
	q  querier
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn against a transaction-scoped copy of the store. A non-nil
// error from fn rolls everything back.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(*PostgresStore) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&PostgresStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// toJSON marshals v for a JSONB column. Nil pointers and nil slices become
// SQL NULL; empty slices survive as '[]' so "empty" and "absent" stay
// distinguishable.
func toJSON(v any) (any, error) {
	switch val := v.(type) {
	case *SocialMedia:
		if val == nil {
			return nil, nil
		}
	case *MakerSocialMedia:
		if val == nil {
			return nil, nil
		}
	case *Source:
		if val == nil {
			return nil, nil
		}
	case []string:
		if val == nil {
			return nil, nil
		}
	case []int64:
		if val == nil {
			return nil, nil
		}
	case []CharacterReference:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return data, nil
}

func fromJSON(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

// --- Kigers ---

const kigerColumns = `id, name, bio, profile_image, position, is_active, social_media, created_at, updated_at`

func scanKiger(row interface{ Scan(...any) error }) (Kiger, error) {
	var (
		item   Kiger
		bio    sql.NullString
		image  sql.NullString
		social []byte
	)
	if err := row.Scan(&item.ID, &item.Name, &bio, &image, &item.Position, &item.IsActive, &social, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Kiger{}, err
	}
	item.Bio = bio.String
	item.ProfileImage = image.String
	if social != nil {
		item.SocialMedia = &SocialMedia{}
		if err := fromJSON(social, item.SocialMedia); err != nil {
			return Kiger{}, err
		}
	}
	return item, nil
}

func (s *PostgresStore) GetKiger(ctx context.Context, id string) (Kiger, error) {
	return scanKiger(s.q.QueryRowContext(ctx, `SELECT `+kigerColumns+` FROM kigers WHERE id=$1`, id))
}

func (s *PostgresStore) ListKigers(ctx context.Context) ([]Kiger, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+kigerColumns+` FROM kigers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list kigers: %w", err)
	}
	defer rows.Close()

	items := make([]Kiger, 0)
	for rows.Next() {
		item, err := scanKiger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kiger: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kigers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertKiger(ctx context.Context, item Kiger) error {
	social, err := toJSON(item.SocialMedia)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO kigers (id, name, bio, profile_image, position, is_active, social_media, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.Name, item.Bio, item.ProfileImage, item.Position, item.IsActive, social, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert kiger: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateKiger(ctx context.Context, item Kiger) error {
	social, err := toJSON(item.SocialMedia)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		UPDATE kigers
		SET name=$2, bio=$3, profile_image=$4, position=$5, is_active=$6, social_media=$7, updated_at=$8
		WHERE id=$1
	`, item.ID, item.Name, item.Bio, item.ProfileImage, item.Position, item.IsActive, social, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update kiger: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListKigerLinks(ctx context.Context, kigerID string) ([]KigerCharacterLink, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, kiger_id, character_id, maker, images
		FROM kiger_characters
		WHERE kiger_id=$1
		ORDER BY id
	`, kigerID)
	if err != nil {
		return nil, fmt.Errorf("list kiger links: %w", err)
	}
	defer rows.Close()

	links := make([]KigerCharacterLink, 0)
	for rows.Next() {
		var (
			link   KigerCharacterLink
			maker  sql.NullString
			images []byte
		)
		if err := rows.Scan(&link.ID, &link.KigerID, &link.CharacterID, &maker, &images); err != nil {
			return nil, fmt.Errorf("scan kiger link: %w", err)
		}
		link.Maker = maker.String
		link.Images = []string{}
		if err := fromJSON(images, &link.Images); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kiger links: %w", err)
	}
	return links, nil
}

func (s *PostgresStore) DeleteKigerLinks(ctx context.Context, kigerID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM kiger_characters WHERE kiger_id=$1`, kigerID); err != nil {
		return fmt.Errorf("delete kiger links: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertKigerLink(ctx context.Context, link KigerCharacterLink) error {
	images, err := toJSON(link.Images)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO kiger_characters (kiger_id, character_id, maker, images)
		VALUES ($1, $2, $3, $4)
	`, link.KigerID, link.CharacterID, link.Maker, images)
	if err != nil {
		return fmt.Errorf("insert kiger link: %w", err)
	}
	return nil
}

// --- Characters ---

const characterColumns = `id, original_name, name, type, official_image, source, created_at, updated_at`

func scanCharacter(row interface{ Scan(...any) error }) (Character, error) {
	var (
		item   Character
		image  sql.NullString
		source []byte
	)
	if err := row.Scan(&item.ID, &item.OriginalName, &item.Name, &item.Type, &image, &source, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Character{}, err
	}
	item.OfficialImage = image.String
	if source != nil {
		item.Source = &Source{}
		if err := fromJSON(source, item.Source); err != nil {
			return Character{}, err
		}
	}
	return item, nil
}

func (s *PostgresStore) GetCharacter(ctx context.Context, id int64) (Character, error) {
	return scanCharacter(s.q.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE id=$1`, id))
}

func (s *PostgresStore) GetCharacterByOriginalName(ctx context.Context, originalName string) (Character, error) {
	return scanCharacter(s.q.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE original_name=$1`, originalName))
}

func (s *PostgresStore) ListCharacters(ctx context.Context) ([]Character, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+characterColumns+` FROM characters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	items := make([]Character, 0)
	for rows.Next() {
		item, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertCharacter(ctx context.Context, item Character) (int64, error) {
	source, err := toJSON(item.Source)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO characters (original_name, name, type, official_image, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, item.OriginalName, item.Name, item.Type, item.OfficialImage, source, item.CreatedAt, item.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert character: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateCharacter(ctx context.Context, item Character) error {
	source, err := toJSON(item.Source)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		UPDATE characters
		SET name=$2, type=$3, official_image=$4, source=$5, updated_at=$6
		WHERE id=$1
	`, item.ID, item.Name, item.Type, item.OfficialImage, source, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update character: %w", err)
	}
	return nil
}

// --- Makers ---

const makerColumns = `id, original_name, name, avatar, social_media, created_at, updated_at`

func scanMaker(row interface{ Scan(...any) error }) (Maker, error) {
	var (
		item   Maker
		avatar sql.NullString
		social []byte
	)
	if err := row.Scan(&item.ID, &item.OriginalName, &item.Name, &avatar, &social, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Maker{}, err
	}
	item.Avatar = avatar.String
	if social != nil {
		item.SocialMedia = &MakerSocialMedia{}
		if err := fromJSON(social, item.SocialMedia); err != nil {
			return Maker{}, err
		}
	}
	return item, nil
}

func (s *PostgresStore) GetMaker(ctx context.Context, id int64) (Maker, error) {
	return scanMaker(s.q.QueryRowContext(ctx, `SELECT `+makerColumns+` FROM makers WHERE id=$1`, id))
}

func (s *PostgresStore) GetMakerByOriginalName(ctx context.Context, originalName string) (Maker, error) {
	return scanMaker(s.q.QueryRowContext(ctx, `SELECT `+makerColumns+` FROM makers WHERE original_name=$1`, originalName))
}

func (s *PostgresStore) ListMakers(ctx context.Context) ([]Maker, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+makerColumns+` FROM makers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list makers: %w", err)
	}
	defer rows.Close()

	items := make([]Maker, 0)
	for rows.Next() {
		item, err := scanMaker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maker: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate makers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertMaker(ctx context.Context, item Maker) (int64, error) {
	social, err := toJSON(item.SocialMedia)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO makers (original_name, name, avatar, social_media, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, item.OriginalName, item.Name, item.Avatar, social, item.CreatedAt, item.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert maker: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateMaker(ctx context.Context, item Maker) error {
	social, err := toJSON(item.SocialMedia)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		UPDATE makers
		SET name=$2, avatar=$3, social_media=$4, updated_at=$5
		WHERE id=$1
	`, item.ID, item.Name, item.Avatar, social, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update maker: %w", err)
	}
	return nil
}

// --- Pending kigers ---

const pendingKigerColumns = `id, reference_id, name, bio, profile_image, position, is_active, social_media, characters, auto_created_characters, changed_fields, status, submitted_at, reviewed_at`

func scanPendingKiger(row interface{ Scan(...any) error }) (PendingKiger, error) {
	var (
		item        PendingKiger
		refID       sql.NullString
		bio         sql.NullString
		image       sql.NullString
		social      []byte
		characters  []byte
		autoCreated []byte
		changed     []byte
		reviewedAt  sql.NullTime
	)
	err := row.Scan(&item.ID, &refID, &item.Name, &bio, &image, &item.Position, &item.IsActive,
		&social, &characters, &autoCreated, &changed, &item.Status, &item.SubmittedAt, &reviewedAt)
	if err != nil {
		return PendingKiger{}, err
	}
	if refID.Valid {
		item.ReferenceID = &refID.String
	}
	item.Bio = bio.String
	item.ProfileImage = image.String
	if social != nil {
		item.SocialMedia = &SocialMedia{}
		if err := fromJSON(social, item.SocialMedia); err != nil {
			return PendingKiger{}, err
		}
	}
	if err := fromJSON(characters, &item.Characters); err != nil {
		return PendingKiger{}, err
	}
	if err := fromJSON(autoCreated, &item.AutoCreatedCharacters); err != nil {
		return PendingKiger{}, err
	}
	if err := fromJSON(changed, &item.ChangedFields); err != nil {
		return PendingKiger{}, err
	}
	if changed != nil && item.ChangedFields == nil {
		item.ChangedFields = []string{}
	}
	if reviewedAt.Valid {
		item.ReviewedAt = &reviewedAt.Time
	}
	return item, nil
}

func (s *PostgresStore) InsertPendingKiger(ctx context.Context, item PendingKiger) error {
	social, err := toJSON(item.SocialMedia)
	if err != nil {
		return err
	}
	characters, err := toJSON(item.Characters)
	if err != nil {
		return err
	}
	autoCreated, err := toJSON(item.AutoCreatedCharacters)
	if err != nil {
		return err
	}
	changed, err := toJSON(item.ChangedFields)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO pending_kigers (id, reference_id, name, bio, profile_image, position, is_active, social_media, characters, auto_created_characters, changed_fields, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, item.ID, item.ReferenceID, item.Name, item.Bio, item.ProfileImage, item.Position, item.IsActive,
		social, characters, autoCreated, changed, item.Status, item.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert pending kiger: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPendingKiger(ctx context.Context, id string) (PendingKiger, error) {
	return scanPendingKiger(s.q.QueryRowContext(ctx, `SELECT `+pendingKigerColumns+` FROM pending_kigers WHERE id=$1`, id))
}

func (s *PostgresStore) ListPendingKigers(ctx context.Context) ([]PendingKiger, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+pendingKigerColumns+`
		FROM pending_kigers
		WHERE status=$1
		ORDER BY submitted_at
	`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending kigers: %w", err)
	}
	defer rows.Close()

	items := make([]PendingKiger, 0)
	for rows.Next() {
		item, err := scanPendingKiger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending kiger: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending kigers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkPendingKigerReviewed(ctx context.Context, id, status string, reviewedAt time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE pending_kigers SET status=$2, reviewed_at=$3 WHERE id=$1
	`, id, status, reviewedAt)
	if err != nil {
		return fmt.Errorf("mark pending kiger reviewed: %w", err)
	}
	return nil
}

// --- Pending characters ---

const pendingCharacterColumns = `id, original_name, name, type, official_image, source, changed_fields, status, submitted_at, reviewed_at`

func scanPendingCharacter(row interface{ Scan(...any) error }) (PendingCharacter, error) {
	var (
		item       PendingCharacter
		image      sql.NullString
		source     []byte
		changed    []byte
		reviewedAt sql.NullTime
	)
	err := row.Scan(&item.ID, &item.OriginalName, &item.Name, &item.Type, &image, &source, &changed, &item.Status, &item.SubmittedAt, &reviewedAt)
	if err != nil {
		return PendingCharacter{}, err
	}
	item.OfficialImage = image.String
	if source != nil {
		item.Source = &Source{}
		if err := fromJSON(source, item.Source); err != nil {
			return PendingCharacter{}, err
		}
	}
	if err := fromJSON(changed, &item.ChangedFields); err != nil {
		return PendingCharacter{}, err
	}
	if changed != nil && item.ChangedFields == nil {
		item.ChangedFields = []string{}
	}
	if reviewedAt.Valid {
		item.ReviewedAt = &reviewedAt.Time
	}
	return item, nil
}

func (s *PostgresStore) InsertPendingCharacter(ctx context.Context, item PendingCharacter) (int64, error) {
	source, err := toJSON(item.Source)
	if err != nil {
		return 0, err
	}
	changed, err := toJSON(item.ChangedFields)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO pending_characters (original_name, name, type, official_image, source, changed_fields, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, item.OriginalName, item.Name, item.Type, item.OfficialImage, source, changed, item.Status, item.SubmittedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert pending character: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetPendingCharacter(ctx context.Context, id int64) (PendingCharacter, error) {
	return scanPendingCharacter(s.q.QueryRowContext(ctx, `SELECT `+pendingCharacterColumns+` FROM pending_characters WHERE id=$1`, id))
}

// FindPendingCharacterByOriginalName returns the oldest still-pending row
// for originalName, or nil when none exists.
func (s *PostgresStore) FindPendingCharacterByOriginalName(ctx context.Context, originalName string) (*PendingCharacter, error) {
	item, err := scanPendingCharacter(s.q.QueryRowContext(ctx, `
		SELECT `+pendingCharacterColumns+`
		FROM pending_characters
		WHERE original_name=$1 AND status=$2
		ORDER BY submitted_at
		LIMIT 1
	`, originalName, StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending character: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ListPendingCharacters(ctx context.Context) ([]PendingCharacter, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+pendingCharacterColumns+`
		FROM pending_characters
		WHERE status=$1
		ORDER BY submitted_at
	`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending characters: %w", err)
	}
	defer rows.Close()

	items := make([]PendingCharacter, 0)
	for rows.Next() {
		item, err := scanPendingCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending character: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending characters: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkPendingCharacterReviewed(ctx context.Context, id int64, status string, reviewedAt time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE pending_characters SET status=$2, reviewed_at=$3 WHERE id=$1
	`, id, status, reviewedAt)
	if err != nil {
		return fmt.Errorf("mark pending character reviewed: %w", err)
	}
	return nil
}

// --- Pending makers ---

const pendingMakerColumns = `id, original_name, name, avatar, social_media, changed_fields, status, submitted_at, reviewed_at`

func scanPendingMaker(row interface{ Scan(...any) error }) (PendingMaker, error) {
	var (
		item       PendingMaker
		avatar     sql.NullString
		social     []byte
		changed    []byte
		reviewedAt sql.NullTime
	)
	err := row.Scan(&item.ID, &item.OriginalName, &item.Name, &avatar, &social, &changed, &item.Status, &item.SubmittedAt, &reviewedAt)
	if err != nil {
		return PendingMaker{}, err
	}
	item.Avatar = avatar.String
	if social != nil {
		item.SocialMedia = &MakerSocialMedia{}
		if err := fromJSON(social, item.SocialMedia); err != nil {
			return PendingMaker{}, err
		}
	}
	if err := fromJSON(changed, &item.ChangedFields); err != nil {
		return PendingMaker{}, err
	}
	if changed != nil && item.ChangedFields == nil {
		item.ChangedFields = []string{}
	}
	if reviewedAt.Valid {
		item.ReviewedAt = &reviewedAt.Time
	}
	return item, nil
}

func (s *PostgresStore) InsertPendingMaker(ctx context.Context, item PendingMaker) (int64, error) {
	social, err := toJSON(item.SocialMedia)
	if err != nil {
		return 0, err
	}
	changed, err := toJSON(item.ChangedFields)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO pending_makers (original_name, name, avatar, social_media, changed_fields, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, item.OriginalName, item.Name, item.Avatar, social, changed, item.Status, item.SubmittedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert pending maker: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetPendingMaker(ctx context.Context, id int64) (PendingMaker, error) {
	return scanPendingMaker(s.q.QueryRowContext(ctx, `SELECT `+pendingMakerColumns+` FROM pending_makers WHERE id=$1`, id))
}

func (s *PostgresStore) ListPendingMakers(ctx context.Context) ([]PendingMaker, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+pendingMakerColumns+`
		FROM pending_makers
		WHERE status=$1
		ORDER BY submitted_at
	`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending makers: %w", err)
	}
	defer rows.Close()

	items := make([]PendingMaker, 0)
	for rows.Next() {
		item, err := scanPendingMaker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending maker: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending makers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkPendingMakerReviewed(ctx context.Context, id int64, status string, reviewedAt time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE pending_makers SET status=$2, reviewed_at=$3 WHERE id=$1
	`, id, status, reviewedAt)
	if err != nil {
		return fmt.Errorf("mark pending maker reviewed: %w", err)
	}
	return nil
}

// --- Admins ---

func (s *PostgresStore) GetAdminByUsername(ctx context.Context, username string) (Admin, error) {
	var item Admin
	err := s.q.QueryRowContext(ctx, `
		SELECT id, username, hashed_password, created_at FROM admins WHERE username=$1
	`, username).Scan(&item.ID, &item.Username, &item.HashedPassword, &item.CreatedAt)
	if err != nil {
		return Admin{}, err
	}
	return item, nil
}

// EnsureAdmin creates the admin account if it does not exist yet. An
// existing row keeps its password.
func (s *PostgresStore) EnsureAdmin(ctx context.Context, username, hashedPassword string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO admins (username, hashed_password)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, hashedPassword)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}
