package materials

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/database/dbtest"
	"github.com/jimdaga/studymate/internal/logging"
	"github.com/jimdaga/studymate/internal/models"
	"github.com/jimdaga/studymate/internal/storage"
	"github.com/jimdaga/studymate/internal/validation"
)

const testBucket = "learning-materials"

type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploads    int
	uploadErr  error
	removeErr  error
	removeCall []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[path] = data
	return nil
}

func (f *fakeStore) PublicURL(path string) string {
	return "https://files.test/storage/v1/object/public/" + testBucket + "/" + path
}

func (f *fakeStore) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCall = append(f.removeCall, path)
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.objects[path]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.objects, path)
	return nil
}

type fakeCleanup struct {
	paths []string
}

func (f *fakeCleanup) EnqueueRemoveMaterialFile(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	return nil
}

func newTestService(t *testing.T, db *gorm.DB, store storage.Store, cleanup FileCleanup) *Service {
	t.Helper()
	return NewService(db, store, validation.New(), Options{
		Bucket:         testBucket,
		MaxUploadBytes: 5 * 1024 * 1024,
		Cleanup:        cleanup,
	}, logging.Discard())
}

type materialFixture struct {
	title       string
	description string
	subject     string
	fileType    models.FileType
	downloads   int64
	createdAt   time.Time
}

func createMaterial(t *testing.T, db *gorm.DB, owner uuid.UUID, fx materialFixture) models.LearningMaterial {
	t.Helper()
	if fx.fileType == "" {
		fx.fileType = models.FileTypeNotes
	}
	if fx.subject == "" {
		fx.subject = "General"
	}
	m := models.LearningMaterial{
		Title:     fx.title,
		Subject:   fx.subject,
		FileURL:   "https://files.test/storage/v1/object/public/" + testBucket + "/" + owner.String() + "/" + uuid.NewString() + ".pdf",
		FileType:  fx.fileType,
		FileSize:  1024,
		UserID:    owner,
		Downloads: fx.downloads,
	}
	if fx.description != "" {
		m.Description = &fx.description
	}
	if !fx.createdAt.IsZero() {
		m.CreatedAt = fx.createdAt
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to create material %q: %v", fx.title, err)
	}
	return m
}

func titles(items []Material) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.Title
	}
	return out
}

func sameOrder(t *testing.T, got []Material, want ...string) {
	t.Helper()
	g := titles(got)
	if strings.Join(g, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, g)
	}
}

func TestUploadRejectsOversizedFileBeforeStorage(t *testing.T) {
	store := newFakeStore()
	// No database: the size check must not touch it.
	svc := newTestService(t, nil, store, nil)

	_, err := svc.Upload(context.Background(), uuid.New(), UploadInput{Title: "Big", Subject: "Math"}, File{
		Name:    "big.pdf",
		Size:    6_291_456,
		Content: bytes.NewReader(nil),
	})

	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds 5MB limit") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if store.uploads != 0 {
		t.Errorf("expected no storage calls, got %d", store.uploads)
	}
}

func TestUploadRequiresAuth(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, nil, store, nil)

	_, err := svc.Upload(context.Background(), uuid.Nil, UploadInput{Title: "x", Subject: "y"}, File{Name: "a.txt", Size: 1, Content: strings.NewReader("a")})
	if !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected auth required, got %v", err)
	}
	if store.uploads != 0 {
		t.Errorf("expected no storage calls")
	}
}

func TestUploadValidatesMetadata(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, nil, store, nil)
	file := File{Name: "a.txt", Size: 1, Content: strings.NewReader("a")}

	_, err := svc.Upload(context.Background(), uuid.New(), UploadInput{Subject: "Math"}, file)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for missing title, got %v", err)
	}

	_, err = svc.Upload(context.Background(), uuid.New(), UploadInput{Title: "T", Subject: "Math", FileType: "poster"}, file)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for bad file type, got %v", err)
	}
	if store.uploads != 0 {
		t.Errorf("expected no storage calls, got %d", store.uploads)
	}
}

func TestUploadStoresFileAndMetadata(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "owner@example.com")
	store := newFakeStore()
	svc := newTestService(t, db, store, nil)

	m, err := svc.Upload(context.Background(), owner.ID, UploadInput{
		Title:       "  Limits cheat sheet ",
		Description: "one page",
		Subject:     "Mathematics",
		FileType:    models.FileTypeStudyGuide,
	}, File{Name: "Limits.PDF", Size: 5, ContentType: "application/pdf", Content: strings.NewReader("hello")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if m.Title != "Limits cheat sheet" || m.Downloads != 0 || m.FileSize != 5 {
		t.Errorf("unexpected material %+v", m.LearningMaterial)
	}
	if m.CourseCode != nil {
		t.Errorf("expected empty course code to be stored as NULL")
	}

	path, err := storage.PathFromURL(m.FileURL, testBucket)
	if err != nil {
		t.Fatalf("PathFromURL: %v", err)
	}
	if !strings.HasPrefix(path, owner.ID.String()+"/") || !strings.HasSuffix(path, ".pdf") {
		t.Errorf("unexpected object path %s", path)
	}
	if string(store.objects[path]) != "hello" {
		t.Errorf("expected stored content, got %q", store.objects[path])
	}
}

func TestUploadRemovesObjectWhenInsertFails(t *testing.T) {
	db := dbtest.Open(t)
	store := newFakeStore()
	svc := newTestService(t, db, store, nil)

	// The owner does not exist, so the foreign key rejects the row.
	_, err := svc.Upload(context.Background(), uuid.New(), UploadInput{Title: "T", Subject: "S"}, File{
		Name: "a.txt", Size: 1, Content: strings.NewReader("a"),
	})
	if !apperr.Is(err, apperr.KindBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Errorf("expected orphaned object to be removed, have %d", len(store.objects))
	}
}

func TestUploadStorageFailure(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "s@example.com")
	store := newFakeStore()
	store.uploadErr = errors.New("bucket unavailable")
	svc := newTestService(t, db, store, nil)

	_, err := svc.Upload(context.Background(), owner.ID, UploadInput{Title: "T", Subject: "S"}, File{
		Name: "a.txt", Size: 1, Content: strings.NewReader("a"),
	})
	if !apperr.Is(err, apperr.KindBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}

	var count int64
	db.Model(&models.LearningMaterial{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no metadata row, got %d", count)
	}
}

func TestFetchSearchMatchesAnyFieldCaseInsensitively(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "f@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)

	createMaterial(t, db, owner.ID, materialFixture{title: "Calculus I", subject: "Mathematics"})
	createMaterial(t, db, owner.ID, materialFixture{title: "Week 3", description: "Intro to CALCULUS", subject: "Mathematics"})
	createMaterial(t, db, owner.ID, materialFixture{title: "Kinematics", subject: "Calc-based Physics"})
	createMaterial(t, db, owner.ID, materialFixture{title: "Cells", subject: "Biology"})
	createMaterial(t, db, owner.ID, materialFixture{title: "100% exam guide", subject: "Biology"})

	got, err := svc.Fetch(context.Background(), Filter{SearchQuery: "calc"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %v", titles(got))
	}
	for _, m := range got {
		desc := ""
		if m.Description != nil {
			desc = *m.Description
		}
		hay := strings.ToLower(m.Title + " " + desc + " " + m.Subject)
		if !strings.Contains(hay, "calc") {
			t.Errorf("%q does not contain the query", m.Title)
		}
	}

	got, err = svc.Fetch(context.Background(), Filter{SearchQuery: "%"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	sameOrder(t, got, "100% exam guide")
}

func TestFetchFiltersAndSorts(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "g@example.com")
	rater := dbtest.CreateUser(t, db, "h@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	a := createMaterial(t, db, owner.ID, materialFixture{title: "A", subject: "Math", fileType: models.FileTypeNotes, downloads: 5, createdAt: base})
	b := createMaterial(t, db, owner.ID, materialFixture{title: "B", subject: "Math", fileType: models.FileTypeSummary, downloads: 50, createdAt: base.Add(time.Hour)})
	createMaterial(t, db, owner.ID, materialFixture{title: "C", subject: "History", fileType: models.FileTypeNotes, downloads: 10, createdAt: base.Add(2 * time.Hour)})

	ctx := context.Background()
	if _, err := svc.Rate(ctx, rater.ID, a.ID, 5); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if _, err := svc.Rate(ctx, rater.ID, b.ID, 2); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	got, _ := svc.Fetch(ctx, Filter{})
	sameOrder(t, got, "C", "B", "A")

	got, _ = svc.Fetch(ctx, Filter{SortBy: SortPopular})
	sameOrder(t, got, "B", "C", "A")

	got, _ = svc.Fetch(ctx, Filter{SortBy: SortHighestRated})
	sameOrder(t, got, "A", "B", "C")

	got, _ = svc.Fetch(ctx, Filter{Subject: "Math", FileType: models.FileTypeNotes})
	sameOrder(t, got, "A")
	if got[0].AverageRating != 5 || got[0].RatingsCount != 1 {
		t.Errorf("expected aggregate 5/1, got %v/%d", got[0].AverageRating, got[0].RatingsCount)
	}
}

func TestMineAndSaved(t *testing.T) {
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice@example.com")
	bob := dbtest.CreateUser(t, db, "bob@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	createMaterial(t, db, alice.ID, materialFixture{title: "A1", createdAt: base})
	createMaterial(t, db, alice.ID, materialFixture{title: "A2", createdAt: base.Add(time.Hour)})
	b1 := createMaterial(t, db, bob.ID, materialFixture{title: "B1"})

	mine, err := svc.Mine(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	sameOrder(t, mine, "A2", "A1")

	if err := svc.Save(ctx, alice.ID, b1.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, err := svc.Saved(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Saved: %v", err)
	}
	sameOrder(t, saved, "B1")

	if _, err := svc.Mine(ctx, uuid.Nil); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected auth required for anonymous Mine, got %v", err)
	}
}

func TestByIDIncludesViewerRating(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "i@example.com")
	viewer := dbtest.CreateUser(t, db, "j@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	ctx := context.Background()
	m := createMaterial(t, db, owner.ID, materialFixture{title: "M"})

	if _, err := svc.Rate(ctx, viewer.ID, m.ID, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	got, err := svc.ByID(ctx, m.ID, viewer.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if got.UserRating == nil || *got.UserRating != 4 {
		t.Errorf("expected viewer rating 4, got %v", got.UserRating)
	}

	got, _ = svc.ByID(ctx, m.ID, owner.ID)
	if got.UserRating != nil {
		t.Errorf("expected no rating for owner, got %d", *got.UserRating)
	}

	if _, err := svc.ByID(ctx, uuid.New(), uuid.Nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSubjects(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "k@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)

	createMaterial(t, db, owner.ID, materialFixture{title: "1", subject: "Physics"})
	createMaterial(t, db, owner.ID, materialFixture{title: "2", subject: "Biology"})
	createMaterial(t, db, owner.ID, materialFixture{title: "3", subject: "Physics"})

	got, err := svc.Subjects(context.Background())
	if err != nil {
		t.Fatalf("Subjects: %v", err)
	}
	if strings.Join(got, ",") != "Biology,Physics" {
		t.Errorf("expected Biology,Physics, got %v", got)
	}
}

func TestIncrementDownload(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "l@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	m := createMaterial(t, db, owner.ID, materialFixture{title: "D"})
	ctx := context.Background()

	var last int64
	for i := 1; i <= 5; i++ {
		n := svc.IncrementDownload(ctx, m.ID)
		if n != int64(i) || n < last {
			t.Fatalf("call %d: expected %d, got %d", i, i, n)
		}
		last = n
	}

	if n := svc.IncrementDownload(ctx, uuid.New()); n != 0 {
		t.Errorf("expected 0 for unknown material, got %d", n)
	}
}

func TestDeleteOnlyByOwner(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "m@example.com")
	other := dbtest.CreateUser(t, db, "n@example.com")
	store := newFakeStore()
	svc := newTestService(t, db, store, nil)
	m := createMaterial(t, db, owner.ID, materialFixture{title: "Mine"})

	err := svc.Delete(context.Background(), other.ID, m.ID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if len(store.removeCall) != 0 {
		t.Errorf("expected no storage removal for forbidden delete")
	}

	if err := svc.Delete(context.Background(), uuid.Nil, m.ID); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected auth required, got %v", err)
	}
}

func TestDeleteRemovesFileRatingsAndSaves(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "o@example.com")
	fan := dbtest.CreateUser(t, db, "p@example.com")
	store := newFakeStore()
	svc := newTestService(t, db, store, nil)
	ctx := context.Background()

	m, err := svc.Upload(ctx, owner.ID, UploadInput{Title: "T", Subject: "S"}, File{Name: "t.txt", Size: 1, Content: strings.NewReader("t")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := svc.Rate(ctx, fan.ID, m.ID, 5); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := svc.Save(ctx, fan.ID, m.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := svc.Delete(ctx, owner.ID, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(store.objects) != 0 {
		t.Errorf("expected stored file to be removed")
	}
	for _, model := range []any{&models.LearningMaterial{}, &models.MaterialRating{}, &models.SavedMaterial{}} {
		var count int64
		db.Model(model).Count(&count)
		if count != 0 {
			t.Errorf("expected %T rows to be deleted, got %d", model, count)
		}
	}
}

func TestDeleteContinuesWhenFileRemovalFails(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "q@example.com")
	store := newFakeStore()
	store.removeErr = errors.New("timeout")
	cleanup := &fakeCleanup{}
	svc := newTestService(t, db, store, cleanup)
	m := createMaterial(t, db, owner.ID, materialFixture{title: "T"})

	if err := svc.Delete(context.Background(), owner.ID, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var count int64
	db.Model(&models.LearningMaterial{}).Count(&count)
	if count != 0 {
		t.Errorf("expected metadata row to be deleted")
	}
	if len(cleanup.paths) != 1 || !strings.HasPrefix(cleanup.paths[0], owner.ID.String()+"/") {
		t.Errorf("expected one cleanup task for the file, got %v", cleanup.paths)
	}
}

func TestSearchConditionByDialect(t *testing.T) {
	if cond := searchCondition(dbtest.Open(t)); !strings.Contains(cond, "LOWER(title) LIKE") {
		t.Errorf("expected LOWER/LIKE on sqlite, got %s", cond)
	}

	pg := &gorm.DB{Config: &gorm.Config{Dialector: postgres.New(postgres.Config{DSN: "host=localhost"})}}
	if cond := searchCondition(pg); !strings.Contains(cond, "title ILIKE") || strings.Contains(cond, "LOWER(") {
		t.Errorf("expected ILIKE on postgres, got %s", cond)
	}
}
