package workflow

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"kigurumi/api/internal/store"
)

// fakeStore is an in-memory Store. WithTx runs the callback directly; the
// engine's transactional behavior is exercised against postgres elsewhere.
type fakeStore struct {
	kigers            map[string]store.Kiger
	characters        map[int64]store.Character
	makers            map[int64]store.Maker
	links             []store.KigerCharacterLink
	pendingKigers     map[string]store.PendingKiger
	pendingCharacters map[int64]store.PendingCharacter
	pendingMakers     map[int64]store.PendingMaker
	nextID            int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		kigers:            map[string]store.Kiger{},
		characters:        map[int64]store.Character{},
		makers:            map[int64]store.Maker{},
		pendingKigers:     map[string]store.PendingKiger{},
		pendingCharacters: map[int64]store.PendingCharacter{},
		pendingMakers:     map[int64]store.PendingMaker{},
	}
}

func (f *fakeStore) nextSerial() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeStore) GetKiger(ctx context.Context, id string) (store.Kiger, error) {
	item, ok := f.kigers[id]
	if !ok {
		return store.Kiger{}, sql.ErrNoRows
	}
	return item, nil
}

func (f *fakeStore) InsertKiger(ctx context.Context, item store.Kiger) error {
	f.kigers[item.ID] = item
	return nil
}

func (f *fakeStore) UpdateKiger(ctx context.Context, item store.Kiger) error {
	if _, ok := f.kigers[item.ID]; !ok {
		return sql.ErrNoRows
	}
	f.kigers[item.ID] = item
	return nil
}

func (f *fakeStore) ListKigerLinks(ctx context.Context, kigerID string) ([]store.KigerCharacterLink, error) {
	links := []store.KigerCharacterLink{}
	for _, link := range f.links {
		if link.KigerID == kigerID {
			links = append(links, link)
		}
	}
	return links, nil
}

func (f *fakeStore) DeleteKigerLinks(ctx context.Context, kigerID string) error {
	kept := f.links[:0]
	for _, link := range f.links {
		if link.KigerID != kigerID {
			kept = append(kept, link)
		}
	}
	f.links = kept
	return nil
}

func (f *fakeStore) InsertKigerLink(ctx context.Context, link store.KigerCharacterLink) error {
	link.ID = f.nextSerial()
	f.links = append(f.links, link)
	return nil
}

func (f *fakeStore) GetCharacter(ctx context.Context, id int64) (store.Character, error) {
	item, ok := f.characters[id]
	if !ok {
		return store.Character{}, sql.ErrNoRows
	}
	return item, nil
}

func (f *fakeStore) GetCharacterByOriginalName(ctx context.Context, originalName string) (store.Character, error) {
	for _, item := range f.characters {
		if item.OriginalName == originalName {
			return item, nil
		}
	}
	return store.Character{}, sql.ErrNoRows
}

func (f *fakeStore) InsertCharacter(ctx context.Context, item store.Character) (int64, error) {
	item.ID = f.nextSerial()
	f.characters[item.ID] = item
	return item.ID, nil
}

func (f *fakeStore) UpdateCharacter(ctx context.Context, item store.Character) error {
	if _, ok := f.characters[item.ID]; !ok {
		return sql.ErrNoRows
	}
	f.characters[item.ID] = item
	return nil
}

func (f *fakeStore) GetMaker(ctx context.Context, id int64) (store.Maker, error) {
	item, ok := f.makers[id]
	if !ok {
		return store.Maker{}, sql.ErrNoRows
	}
	return item, nil
}

func (f *fakeStore) GetMakerByOriginalName(ctx context.Context, originalName string) (store.Maker, error) {
	for _, item := range f.makers {
		if item.OriginalName == originalName {
			return item, nil
		}
	}
	return store.Maker{}, sql.ErrNoRows
}

func (f *fakeStore) InsertMaker(ctx context.Context, item store.Maker) (int64, error) {
	item.ID = f.nextSerial()
	f.makers[item.ID] = item
	return item.ID, nil
}

func (f *fakeStore) UpdateMaker(ctx context.Context, item store.Maker) error {
	if _, ok := f.makers[item.ID]; !ok {
		return sql.ErrNoRows
	}
	f.makers[item.ID] = item
	return nil
}

func (f *fakeStore) InsertPendingKiger(ctx context.Context, item store.PendingKiger) error {
	f.pendingKigers[item.ID] = item
	return nil
}

func (f *fakeStore) GetPendingKiger(ctx context.Context, id string) (store.PendingKiger, error) {
	item, ok := f.pendingKigers[id]
	if !ok {
		return store.PendingKiger{}, sql.ErrNoRows
	}
	return item, nil
}

func (f *fakeStore) MarkPendingKigerReviewed(ctx context.Context, id, status string, reviewedAt time.Time) error {
	item, ok := f.pendingKigers[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	item.ReviewedAt = &reviewedAt
	f.pendingKigers[id] = item
	return nil
}

func (f *fakeStore) InsertPendingCharacter(ctx context.Context, item store.PendingCharacter) (int64, error) {
	item.ID = f.nextSerial()
	f.pendingCharacters[item.ID] = item
	return item.ID, nil
}

func (f *fakeStore) GetPendingCharacter(ctx context.Context, id int64) (store.PendingCharacter, error) {
	item, ok := f.pendingCharacters[id]
	if !ok {
		return store.PendingCharacter{}, sql.ErrNoRows
	}
	return item, nil
}

func (f *fakeStore) FindPendingCharacterByOriginalName(ctx context.Context, originalName string) (*store.PendingCharacter, error) {
	for _, item := range f.pendingCharacters {
		if item.OriginalName == originalName && item.Status == store.StatusPending {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MarkPendingCharacterReviewed(ctx context.Context, id int64, status string, reviewedAt time.Time) error {
	item, ok := f.pendingCharacters[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	item.ReviewedAt = &reviewedAt
	f.pendingCharacters[id] = item
	return nil
}

func (f *fakeStore) InsertPendingMaker(ctx context.Context, item store.PendingMaker) (int64, error) {
	item.ID = f.nextSerial()
	f.pendingMakers[item.ID] = item
	return item.ID, nil
}

func (f *fakeStore) GetPendingMaker(ctx context.Context, id int64) (store.PendingMaker, error) {
	item, ok := f.pendingMakers[id]
	if !ok {
		return store.PendingMaker{}, sql.ErrNoRows
	}
	return item, nil
}

func (f *fakeStore) MarkPendingMakerReviewed(ctx context.Context, id int64, status string, reviewedAt time.Time) error {
	item, ok := f.pendingMakers[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	item.ReviewedAt = &reviewedAt
	f.pendingMakers[id] = item
	return nil
}

// fakeCache records invalidations.
type fakeCache struct {
	deleted  []string
	prefixes []string
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) {
	f.deleted = append(f.deleted, keys...)
}

func (f *fakeCache) DeletePrefix(ctx context.Context, prefix string) {
	f.prefixes = append(f.prefixes, prefix)
}

func (f *fakeCache) contains(key string) bool {
	for _, k := range f.deleted {
		if k == key {
			return true
		}
	}
	return false
}

func newTestService() (*Service, *fakeStore, *fakeCache) {
	st := newFakeStore()
	c := &fakeCache{}
	return NewService(st, c), st, c
}

func strPtr(s string) *string { return &s }

// --- submissions ---

func TestSubmitKigerCreate(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	pending, err := svc.SubmitKiger(ctx, KigerDraft{ID: "k1", Name: "Fresh Kiger"})
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if pending.Status != store.StatusPending {
		t.Errorf("expected pending status, got %s", pending.Status)
	}
	if pending.ChangedFields != nil {
		t.Errorf("create submission should have nil changed fields, got %v", pending.ChangedFields)
	}
	if len(st.kigers) != 0 {
		t.Error("submission must not touch the canonical table")
	}
	if _, ok := st.pendingKigers["k1"]; !ok {
		t.Error("pending row not stored")
	}
}

func TestSubmitKigerGeneratesID(t *testing.T) {
	svc, _, _ := newTestService()

	pending, err := svc.SubmitKiger(context.Background(), KigerDraft{Name: "No ID"})
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if pending.ID == "" {
		t.Error("expected a generated submission id")
	}
}

func TestSubmitKigerValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SubmitKiger(context.Background(), KigerDraft{})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitKigerDiffsAgainstReference(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Old Name", Bio: "same bio", IsActive: true}

	pending, err := svc.SubmitKiger(ctx, KigerDraft{
		ID:          "sub1",
		ReferenceID: strPtr("k1"),
		Name:        "New Name",
		Bio:         "same bio",
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if len(pending.ChangedFields) != 1 || pending.ChangedFields[0] != "name" {
		t.Errorf("expected changed fields [name], got %v", pending.ChangedFields)
	}
}

func TestSubmitKigerNoChangesIsEmptyNotNil(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Same", Bio: "bio", IsActive: true}

	pending, err := svc.SubmitKiger(ctx, KigerDraft{
		ID:          "sub1",
		ReferenceID: strPtr("k1"),
		Name:        "Same",
		Bio:         "bio",
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if pending.ChangedFields == nil {
		t.Fatal("no-op resubmission should have empty, not nil, changed fields")
	}
	if len(pending.ChangedFields) != 0 {
		t.Errorf("expected no changed fields, got %v", pending.ChangedFields)
	}
}

func TestSubmitKigerAutoCreatesPendingCharacter(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	draft := KigerDraft{
		ID:   "k1",
		Name: "Kiger",
		Characters: []store.CharacterReference{{
			CharacterID: "unknown",
			CharacterData: &store.CharacterDraft{
				Name:         "New Char",
				OriginalName: "NewCharOriginal",
				Type:         "game",
				Source:       &store.Source{Title: "Game", Company: "Co", ReleaseYear: 2024},
			},
		}},
	}
	pending, err := svc.SubmitKiger(ctx, draft)
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if len(pending.AutoCreatedCharacters) != 1 {
		t.Fatalf("expected 1 auto-created character, got %d", len(pending.AutoCreatedCharacters))
	}
	pc, ok := st.pendingCharacters[pending.AutoCreatedCharacters[0]]
	if !ok {
		t.Fatal("auto-created pending character not stored")
	}
	if pc.OriginalName != "NewCharOriginal" || pc.Status != store.StatusPending {
		t.Errorf("unexpected pending character %+v", pc)
	}

	// A second submission naming the same unknown character must not
	// duplicate the pending row.
	draft.ID = "k2"
	again, err := svc.SubmitKiger(ctx, draft)
	if err != nil {
		t.Fatalf("second SubmitKiger failed: %v", err)
	}
	if len(again.AutoCreatedCharacters) != 0 {
		t.Errorf("expected no new auto-created characters, got %v", again.AutoCreatedCharacters)
	}
	if len(st.pendingCharacters) != 1 {
		t.Errorf("expected 1 pending character, got %d", len(st.pendingCharacters))
	}
}

func TestSubmitKigerResolvedReferenceNotAutoCreated(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.characters[7] = store.Character{ID: 7, OriginalName: "Existing", Name: "Existing", Type: "anime"}

	pending, err := svc.SubmitKiger(ctx, KigerDraft{
		ID:   "k1",
		Name: "Kiger",
		Characters: []store.CharacterReference{{
			CharacterID:   "7",
			CharacterData: &store.CharacterDraft{Name: "Existing", OriginalName: "Existing", Type: "anime"},
		}},
	})
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if len(pending.AutoCreatedCharacters) != 0 {
		t.Errorf("resolved reference must not auto-create, got %v", pending.AutoCreatedCharacters)
	}
}

func TestSubmitCharacterValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SubmitCharacter(context.Background(), store.CharacterDraft{Name: "only name"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitCharacterDiff(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.characters[1] = store.Character{
		ID: 1, OriginalName: "Char1", Name: "Old", Type: "game",
		Source: &store.Source{Title: "Game", Company: "Co", ReleaseYear: 2020},
	}

	pending, err := svc.SubmitCharacter(ctx, store.CharacterDraft{
		Name: "New", OriginalName: "Char1", Type: "game",
		Source: &store.Source{Title: "Game", Company: "Co", ReleaseYear: 2020},
	})
	if err != nil {
		t.Fatalf("SubmitCharacter failed: %v", err)
	}
	if len(pending.ChangedFields) != 1 || pending.ChangedFields[0] != "name" {
		t.Errorf("expected changed fields [name], got %v", pending.ChangedFields)
	}
}

// --- reviews ---

func TestReviewInvalidAction(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ReviewKiger(context.Background(), "any", "publish")
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
}

func TestReviewNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ReviewKiger(context.Background(), "missing", ActionApprove)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApproveCreatesKiger(t *testing.T) {
	svc, st, c := newTestService()
	ctx := context.Background()

	if _, err := svc.SubmitKiger(ctx, KigerDraft{ID: "k1", Name: "Fresh", Bio: "bio"}); err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	result, err := svc.ReviewKiger(ctx, "k1", ActionApprove)
	if err != nil {
		t.Fatalf("ReviewKiger failed: %v", err)
	}
	if result.Status != store.StatusApproved {
		t.Errorf("expected approved, got %s", result.Status)
	}

	kiger, ok := st.kigers["k1"]
	if !ok {
		t.Fatal("canonical kiger not created")
	}
	if kiger.Name != "Fresh" || kiger.Bio != "bio" {
		t.Errorf("unexpected canonical kiger %+v", kiger)
	}

	row := st.pendingKigers["k1"]
	if row.Status != store.StatusApproved || row.ReviewedAt == nil {
		t.Errorf("pending row not stamped: %+v", row)
	}

	if !c.contains(CacheKeyKigers) || !c.contains(CacheKeyKiger("k1")) {
		t.Errorf("cache not invalidated, deleted=%v", c.deleted)
	}
}

func TestRejectDoesNotMutate(t *testing.T) {
	svc, st, c := newTestService()
	ctx := context.Background()

	if _, err := svc.SubmitKiger(ctx, KigerDraft{ID: "k1", Name: "Fresh"}); err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	result, err := svc.ReviewKiger(ctx, "k1", ActionReject)
	if err != nil {
		t.Fatalf("ReviewKiger failed: %v", err)
	}
	if result.Status != store.StatusRejected {
		t.Errorf("expected rejected, got %s", result.Status)
	}
	if len(st.kigers) != 0 {
		t.Error("reject must not touch the canonical table")
	}
	row := st.pendingKigers["k1"]
	if row.Status != store.StatusRejected || row.ReviewedAt == nil {
		t.Errorf("pending row not stamped: %+v", row)
	}
	if len(c.deleted) != 0 {
		t.Errorf("reject must not invalidate cache, deleted=%v", c.deleted)
	}
}

func TestReReviewReappliesAndRestamps(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Original", IsActive: true}
	st.pendingKigers["p1"] = store.PendingKiger{
		ID:            "p1",
		ReferenceID:   strPtr("k1"),
		Name:          "Renamed",
		IsActive:      true,
		ChangedFields: []string{"name"},
		Status:        store.StatusPending,
	}

	if _, err := svc.ReviewKiger(ctx, "p1", ActionApprove); err != nil {
		t.Fatalf("first ReviewKiger failed: %v", err)
	}
	firstStamp := *st.pendingKigers["p1"].ReviewedAt

	// The canonical row drifts; approving the same pending id again must
	// reapply its changed fields against current state.
	drifted := st.kigers["k1"]
	drifted.Name = "Drifted"
	st.kigers["k1"] = drifted

	result, err := svc.ReviewKiger(ctx, "p1", ActionApprove)
	if err != nil {
		t.Fatalf("re-approve failed: %v", err)
	}
	if result.Status != store.StatusApproved {
		t.Errorf("expected approved, got %s", result.Status)
	}
	if kiger := st.kigers["k1"]; kiger.Name != "Renamed" {
		t.Errorf("re-approve did not reapply, got %q", kiger.Name)
	}
	row := st.pendingKigers["p1"]
	if row.Status != store.StatusApproved || !row.ReviewedAt.After(firstStamp) {
		t.Errorf("pending row not restamped: %+v", row)
	}

	// A later reject restamps the row but leaves the canonical record alone.
	if _, err := svc.ReviewKiger(ctx, "p1", ActionReject); err != nil {
		t.Fatalf("re-reject failed: %v", err)
	}
	row = st.pendingKigers["p1"]
	if row.Status != store.StatusRejected {
		t.Errorf("expected rejected after re-review, got %s", row.Status)
	}
	if kiger := st.kigers["k1"]; kiger.Name != "Renamed" {
		t.Errorf("reject must not touch the canonical row, got %q", kiger.Name)
	}
}

func TestApproveAppliesOnlyChangedFields(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Old Name", Bio: "old bio", IsActive: true}

	// The snapshot carries a different bio too, but only name was diffed.
	st.pendingKigers["p1"] = store.PendingKiger{
		ID:            "p1",
		ReferenceID:   strPtr("k1"),
		Name:          "New Name",
		Bio:           "sneaky new bio",
		IsActive:      true,
		ChangedFields: []string{"name"},
		Status:        store.StatusPending,
	}

	if _, err := svc.ReviewKiger(ctx, "p1", ActionApprove); err != nil {
		t.Fatalf("ReviewKiger failed: %v", err)
	}
	kiger := st.kigers["k1"]
	if kiger.Name != "New Name" {
		t.Errorf("name not applied: %q", kiger.Name)
	}
	if kiger.Bio != "old bio" {
		t.Errorf("bio must not be applied, got %q", kiger.Bio)
	}
}

func TestLastApprovalWinsPerField(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Original", IsActive: true}

	first, err := svc.SubmitKiger(ctx, KigerDraft{ID: "s1", ReferenceID: strPtr("k1"), Name: "First Name", IsActive: true})
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	second, err := svc.SubmitKiger(ctx, KigerDraft{ID: "s2", ReferenceID: strPtr("k1"), Name: "Second Name", IsActive: true})
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}

	if _, err := svc.ReviewKiger(ctx, first.ID, ActionApprove); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	if _, err := svc.ReviewKiger(ctx, second.ID, ActionApprove); err != nil {
		t.Fatalf("approve second: %v", err)
	}
	if got := st.kigers["k1"].Name; got != "Second Name" {
		t.Errorf("expected last approval to win, got %q", got)
	}
}

func TestDisjointChangesBothLand(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Name", Bio: "old bio", IsActive: true}

	a, err := svc.SubmitKiger(ctx, KigerDraft{ID: "sa", ReferenceID: strPtr("k1"), Name: "Renamed", Bio: "old bio", IsActive: true})
	if err != nil {
		t.Fatalf("submit a: %v", err)
	}
	b, err := svc.SubmitKiger(ctx, KigerDraft{ID: "sb", ReferenceID: strPtr("k1"), Name: "Name", Bio: "new bio", IsActive: true})
	if err != nil {
		t.Fatalf("submit b: %v", err)
	}

	if _, err := svc.ReviewKiger(ctx, a.ID, ActionApprove); err != nil {
		t.Fatalf("approve a: %v", err)
	}
	if _, err := svc.ReviewKiger(ctx, b.ID, ActionApprove); err != nil {
		t.Fatalf("approve b: %v", err)
	}

	kiger := st.kigers["k1"]
	if kiger.Name != "Renamed" || kiger.Bio != "new bio" {
		t.Errorf("disjoint changes should both land, got %+v", kiger)
	}
}

func TestRejectOneApproveOther(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Name", IsActive: true}

	bad, _ := svc.SubmitKiger(ctx, KigerDraft{ID: "bad", ReferenceID: strPtr("k1"), Name: "Vandalism", IsActive: true})
	good, _ := svc.SubmitKiger(ctx, KigerDraft{ID: "good", ReferenceID: strPtr("k1"), Name: "Better Name", IsActive: true})

	if _, err := svc.ReviewKiger(ctx, bad.ID, ActionReject); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.ReviewKiger(ctx, good.ID, ActionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := st.kigers["k1"].Name; got != "Better Name" {
		t.Errorf("expected approved name, got %q", got)
	}
}

func TestApproveCascadesAutoCreatedCharacters(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	pending, err := svc.SubmitKiger(ctx, KigerDraft{
		ID:   "k1",
		Name: "Kiger",
		Characters: []store.CharacterReference{{
			CharacterID: "unknown",
			Maker:       strPtr("SomeMaker"),
			Images:      []string{"https://img.example/a.jpg"},
			CharacterData: &store.CharacterDraft{
				Name: "Char", OriginalName: "CharOriginal", Type: "game",
				Source: &store.Source{Title: "Game", Company: "Co", ReleaseYear: 2024},
			},
		}},
	})
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}

	if _, err := svc.ReviewKiger(ctx, "k1", ActionApprove); err != nil {
		t.Fatalf("ReviewKiger failed: %v", err)
	}

	// Cascade: pending character approved and canonical character created.
	pc := st.pendingCharacters[pending.AutoCreatedCharacters[0]]
	if pc.Status != store.StatusApproved {
		t.Errorf("auto-created character not cascade-approved: %+v", pc)
	}
	char, err := st.GetCharacterByOriginalName(ctx, "CharOriginal")
	if err != nil {
		t.Fatal("canonical character not created")
	}

	// Link rewrite resolved the reference through the new character.
	links, _ := st.ListKigerLinks(ctx, "k1")
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].CharacterID != char.ID || links[0].Maker != "SomeMaker" {
		t.Errorf("unexpected link %+v", links[0])
	}
}

func TestCascadeSkipsIndependentlyReviewed(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	pending, err := svc.SubmitKiger(ctx, KigerDraft{
		ID:   "k1",
		Name: "Kiger",
		Characters: []store.CharacterReference{{
			CharacterID: "unknown",
			CharacterData: &store.CharacterDraft{
				Name: "Char", OriginalName: "CharOriginal", Type: "game",
				Source: &store.Source{Title: "Game", Company: "Co"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}

	// The pending character gets rejected on its own first.
	pcID := pending.AutoCreatedCharacters[0]
	if _, err := svc.ReviewCharacter(ctx, pcID, ActionReject); err != nil {
		t.Fatalf("ReviewCharacter failed: %v", err)
	}

	if _, err := svc.ReviewKiger(ctx, "k1", ActionApprove); err != nil {
		t.Fatalf("ReviewKiger failed: %v", err)
	}

	if st.pendingCharacters[pcID].Status != store.StatusRejected {
		t.Error("cascade must not overturn an independent rejection")
	}
	if _, err := st.GetCharacterByOriginalName(ctx, "CharOriginal"); !errors.Is(err, sql.ErrNoRows) {
		t.Error("rejected character must not be created canonically")
	}
}

func TestLinkRewriteSkipsDanglingReferences(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.characters[5] = store.Character{ID: 5, OriginalName: "Known", Name: "Known", Type: "anime"}

	if _, err := svc.SubmitKiger(ctx, KigerDraft{
		ID:   "k1",
		Name: "Kiger",
		Characters: []store.CharacterReference{
			{CharacterID: "5"},
			{CharacterID: "99999"},
		},
	}); err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if _, err := svc.ReviewKiger(ctx, "k1", ActionApprove); err != nil {
		t.Fatalf("ReviewKiger failed: %v", err)
	}

	links, _ := st.ListKigerLinks(ctx, "k1")
	if len(links) != 1 || links[0].CharacterID != 5 {
		t.Errorf("dangling reference should be skipped, links=%v", links)
	}
}

func TestApproveWithoutCharactersKeepsLinks(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Name", IsActive: true}
	st.characters[5] = store.Character{ID: 5, OriginalName: "Known", Name: "Known", Type: "anime"}
	st.links = []store.KigerCharacterLink{{ID: 1, KigerID: "k1", CharacterID: 5}}

	// Name-only edit: the characters entry is absent from changed fields.
	if _, err := svc.SubmitKiger(ctx, KigerDraft{ID: "s1", ReferenceID: strPtr("k1"), Name: "Renamed", IsActive: true}); err != nil {
		t.Fatalf("SubmitKiger failed: %v", err)
	}
	if _, err := svc.ReviewKiger(ctx, "s1", ActionApprove); err != nil {
		t.Fatalf("ReviewKiger failed: %v", err)
	}

	links, _ := st.ListKigerLinks(ctx, "k1")
	if len(links) != 1 {
		t.Errorf("links must survive a non-character edit, got %v", links)
	}
}

func TestReviewCharacterApproveUpdatesExisting(t *testing.T) {
	svc, st, c := newTestService()
	ctx := context.Background()
	st.characters[3] = store.Character{
		ID: 3, OriginalName: "Char1", Name: "Old", Type: "game",
		Source: &store.Source{Title: "Game", Company: "Co"},
	}

	pending, err := svc.SubmitCharacter(ctx, store.CharacterDraft{
		Name: "New", OriginalName: "Char1", Type: "game",
		Source: &store.Source{Title: "Game", Company: "Co"},
	})
	if err != nil {
		t.Fatalf("SubmitCharacter failed: %v", err)
	}
	if _, err := svc.ReviewCharacter(ctx, pending.ID, ActionApprove); err != nil {
		t.Fatalf("ReviewCharacter failed: %v", err)
	}
	if st.characters[3].Name != "New" {
		t.Errorf("expected updated name, got %q", st.characters[3].Name)
	}
	if !c.contains(CacheKeyCharacter(3)) || !c.contains(CacheKeyCharacters) {
		t.Errorf("cache not invalidated, deleted=%v", c.deleted)
	}
}

func TestReviewMakerApproveCreates(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	pending, err := svc.SubmitMaker(ctx, MakerDraft{Name: "Maker", OriginalName: "MakerOriginal"})
	if err != nil {
		t.Fatalf("SubmitMaker failed: %v", err)
	}
	if _, err := svc.ReviewMaker(ctx, pending.ID, ActionApprove); err != nil {
		t.Fatalf("ReviewMaker failed: %v", err)
	}
	if _, err := st.GetMakerByOriginalName(ctx, "MakerOriginal"); err != nil {
		t.Error("canonical maker not created")
	}
}

// --- direct updates ---

func TestDirectUpdateKigerBypassesQueue(t *testing.T) {
	svc, st, c := newTestService()
	ctx := context.Background()
	st.kigers["k1"] = store.Kiger{ID: "k1", Name: "Old", IsActive: true}
	st.characters[5] = store.Character{ID: 5, OriginalName: "Known", Name: "Known", Type: "anime"}

	updated, links, err := svc.DirectUpdateKiger(ctx, "k1", KigerDraft{
		Name:     "Direct",
		IsActive: true,
		Characters: []store.CharacterReference{
			{CharacterID: "5", Images: []string{"https://img.example/a.jpg"}},
		},
	})
	if err != nil {
		t.Fatalf("DirectUpdateKiger failed: %v", err)
	}
	if updated.Name != "Direct" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if len(links) != 1 || links[0].CharacterID != 5 {
		t.Errorf("expected rewritten links, got %v", links)
	}
	if len(st.pendingKigers) != 0 {
		t.Error("direct update must not create pending rows")
	}
	if !c.contains(CacheKeyKiger("k1")) {
		t.Errorf("cache not invalidated, deleted=%v", c.deleted)
	}
}

func TestDirectUpdateKigerNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.DirectUpdateKiger(context.Background(), "missing", KigerDraft{Name: "X"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectUpdateCharacter(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	st.characters[3] = store.Character{ID: 3, OriginalName: "Char1", Name: "Old", Type: "game"}

	updated, err := svc.DirectUpdateCharacter(ctx, 3, store.CharacterDraft{Name: "Direct", Type: "game"})
	if err != nil {
		t.Fatalf("DirectUpdateCharacter failed: %v", err)
	}
	if updated.Name != "Direct" || updated.OriginalName != "Char1" {
		t.Errorf("unexpected result %+v", updated)
	}
}

func TestDirectUpdateMakerNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.DirectUpdateMaker(context.Background(), 99999, MakerDraft{Name: "X"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
