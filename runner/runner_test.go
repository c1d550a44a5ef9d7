package runner

import (
	"errors"
	"path/filepath"
	"testing"

	"hunter-backend/config"
	"hunter-backend/models"
	"hunter-backend/utils"
)

// fakeStore records calls; failure modes are switchable per test.
type fakeStore struct {
	upserted   [][]*models.Listing
	records    []*models.RunRecord
	upsertErr  error
	recordErr  error
	archiveErr error
	archived   []models.Source
}

func (f *fakeStore) UpsertListings(listings []*models.Listing) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, listings)
	return len(listings), nil
}

func (f *fakeStore) InsertRunRecord(rec *models.RunRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) ArchiveStale(source models.Source, afterRuns int) (int64, error) {
	if f.archiveErr != nil {
		return 0, f.archiveErr
	}
	f.archived = append(f.archived, source)
	return 2, nil
}

func (f *fakeStore) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RateLimitMs:      10,
		MaxRetries:       1,
		ArchiveAfterRuns: 5,
		CSVOutputPath:    filepath.Join(t.TempDir(), "listings.csv"),
	}
}

func testListing(url, title string) *models.Listing {
	return &models.Listing{
		Source:    models.SourceKomornik,
		SourceURL: url,
		Title:     title,
		Location:  "Polska",
		City:      "Polska",
	}
}

func TestRunnerPersistsAndLogsRun(t *testing.T) {
	store := &fakeStore{}
	r := New(testConfig(t), store, utils.NewLogger())

	crawl := func() ([]*models.Listing, error) {
		return []*models.Listing{
			testListing("https://a.pl/1", "Dom A"),
			testListing("https://a.pl/2", "Dom B"),
		}, nil
	}

	res, err := r.execute(models.SourceKomornik, crawl, false)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if res.Status != StatusSuccess || res.Found != 2 || res.Upserted != 2 {
		t.Errorf("Result = %+v; want success with 2/2", res)
	}
	if len(store.upserted) != 1 || len(store.upserted[0]) != 2 {
		t.Fatalf("store received %d batches", len(store.upserted))
	}
	if len(store.records) != 1 {
		t.Fatalf("got %d run records; want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.Source != "komornik" || rec.Status != StatusSuccess || rec.ListingsFound != 2 || rec.ListingsUpserted != 2 {
		t.Errorf("run record = %+v", rec)
	}
	if rec.FinishedAt.Before(rec.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
}

func TestRunnerDryRunTouchesNoStore(t *testing.T) {
	store := &fakeStore{}
	r := New(testConfig(t), store, utils.NewLogger())

	crawl := func() ([]*models.Listing, error) {
		return []*models.Listing{testListing("https://a.pl/1", "Dom A")}, nil
	}

	res, err := r.execute(models.SourceKomornik, crawl, true)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if res.Status != StatusSuccess || res.Found != 1 || res.Upserted != 0 {
		t.Errorf("Result = %+v", res)
	}
	if len(store.upserted) != 0 || len(store.records) != 0 {
		t.Error("dry run must not write to the store")
	}
}

func TestRunnerCrawlFailureIsRecorded(t *testing.T) {
	store := &fakeStore{}
	r := New(testConfig(t), store, utils.NewLogger())

	crawl := func() ([]*models.Listing, error) {
		return nil, errors.New("site unreachable")
	}

	res, err := r.execute(models.SourceKomornik, crawl, false)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if res.Status != StatusError || res.Error != "site unreachable" {
		t.Errorf("Result = %+v", res)
	}
	if len(store.upserted) != 0 {
		t.Error("failed crawl must not upsert")
	}
	if len(store.records) != 1 || store.records[0].Status != StatusError {
		t.Fatalf("run records = %+v", store.records)
	}
}

func TestRunnerZeroListingsIsSuccess(t *testing.T) {
	store := &fakeStore{}
	r := New(testConfig(t), store, utils.NewLogger())

	crawl := func() ([]*models.Listing, error) { return nil, nil }

	res, _ := r.execute(models.SourceKomornik, crawl, false)
	if res.Status != StatusSuccess || res.Found != 0 {
		t.Errorf("Result = %+v; want success with zero listings", res)
	}
	if len(store.upserted) != 0 {
		t.Error("empty run should skip the upsert")
	}
	if len(store.records) != 1 || store.records[0].Status != StatusSuccess {
		t.Errorf("run records = %+v", store.records)
	}
}

func TestRunnerDropsErrorPagesBeforeUpsert(t *testing.T) {
	store := &fakeStore{}
	r := New(testConfig(t), store, utils.NewLogger())

	crawl := func() ([]*models.Listing, error) {
		return []*models.Listing{
			testListing("https://a.pl/1", "Dom A"),
			testListing("https://a.pl/err", "Strona tymczasowo niedostępna"),
		}, nil
	}

	res, _ := r.execute(models.SourceKomornik, crawl, false)
	if res.Found != 1 {
		t.Errorf("Found = %d; want error page filtered out", res.Found)
	}
	if len(store.upserted) != 1 || len(store.upserted[0]) != 1 {
		t.Fatal("error-page listing reached the store")
	}
	if store.upserted[0][0].Title != "Dom A" {
		t.Errorf("persisted %q", store.upserted[0][0].Title)
	}
}

func TestRunnerUpsertFailureMarksRunError(t *testing.T) {
	store := &fakeStore{upsertErr: errors.New("db down")}
	r := New(testConfig(t), store, utils.NewLogger())

	crawl := func() ([]*models.Listing, error) {
		return []*models.Listing{testListing("https://a.pl/1", "Dom A")}, nil
	}

	res, _ := r.execute(models.SourceKomornik, crawl, false)
	if res.Status != StatusError {
		t.Errorf("Status = %q; want error", res.Status)
	}
	if len(store.records) != 1 || store.records[0].Status != StatusError {
		t.Errorf("run records = %+v", store.records)
	}
}

func TestRunnerRunRecordFailureIsSwallowed(t *testing.T) {
	store := &fakeStore{recordErr: errors.New("audit table gone")}
	r := New(testConfig(t), store, utils.NewLogger())

	crawl := func() ([]*models.Listing, error) {
		return []*models.Listing{testListing("https://a.pl/1", "Dom A")}, nil
	}

	res, err := r.execute(models.SourceKomornik, crawl, false)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if res.Status != StatusSuccess || res.Upserted != 1 {
		t.Errorf("Result = %+v; listings must persist even when the audit row fails", res)
	}
}

func TestActiveSourcesDefault(t *testing.T) {
	r := New(testConfig(t), &fakeStore{}, utils.NewLogger())

	got := r.ActiveSources()
	want := []models.Source{models.SourceKomornik, models.SourceELicytacje, models.SourceAMW}
	if len(got) != len(want) {
		t.Fatalf("ActiveSources = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ActiveSources[%d] = %s; want %s", i, got[i], want[i])
		}
	}
}

func TestActiveSourcesConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources = []string{"olx", "gratka", "facebook", "bogus"}
	r := New(cfg, &fakeStore{}, utils.NewLogger())

	got := r.ActiveSources()
	want := []models.Source{models.SourceOLX, models.SourceGratka}
	if len(got) != len(want) {
		t.Fatalf("ActiveSources = %v; want %v (facebook and unknowns skipped)", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ActiveSources[%d] = %s; want %s", i, got[i], want[i])
		}
	}
}

func TestParseSource(t *testing.T) {
	if src, err := ParseSource("komornik"); err != nil || src != models.SourceKomornik {
		t.Errorf("ParseSource(komornik) = %v, %v", src, err)
	}
	if _, err := ParseSource("allegro"); err == nil {
		t.Error("unknown source should error")
	}
}

func TestPersistBatchRequiresStore(t *testing.T) {
	r := New(testConfig(t), nil, utils.NewLogger())
	if _, err := r.PersistBatch(models.SourceFacebook, nil); err == nil {
		t.Error("PersistBatch without a store should error")
	}
}
