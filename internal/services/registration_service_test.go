package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"
)

type fakeDriverRepo struct {
	created    []*models.Driver
	deleted    []string
	plateTaken bool
	pairTaken  bool
	createErr  error
}

func (f *fakeDriverRepo) Create(ctx context.Context, d *models.Driver) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, d)
	return nil
}

func (f *fakeDriverRepo) ExistsByIdentity(ctx context.Context, plate, name, operator string) (bool, bool, error) {
	return f.plateTaken, f.pairTaken, nil
}

func (f *fakeDriverRepo) UpdateImageURLs(ctx context.Context, id, profileURL, plateURL string) error {
	return nil
}

func (f *fakeDriverRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeBarangayRepo struct{ known map[string]bool }

func (f *fakeBarangayRepo) Get(ctx context.Context, id string) (*models.Barangay, error) {
	if !f.known[id] {
		return nil, errors.New("no rows")
	}
	return &models.Barangay{ID: id, TerminalFee: 500}, nil
}

type fakeProvider struct {
	created   []string
	deleted   []string
	createErr error
	deleteErr error
	nextID    string
}

func (f *fakeProvider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, email)
	if f.nextID == "" {
		f.nextID = "acct-1"
	}
	return f.nextID, nil
}

func (f *fakeProvider) DeleteAccount(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeObjectStore struct {
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeObjectStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, key)
	return "https://cdn.example/" + key, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func validRequest() *models.RegisterDriverRequest {
	img := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	return &models.RegisterDriverRequest{
		Email:           "juan@example.com",
		Password:        "secret99",
		Name:            "Juan Dela Cruz",
		OperatorName:    "Reyes Transport",
		BarangayID:      "poblacion",
		TricycleNumber:  "T-42",
		PhoneNumber:     "09170000001",
		PlateNumberText: "abc 123",
		ProfileImage:    "data:image/png;base64," + img,
		PlateImage:      img,
		InitialBalance:  500,
	}
}

func newRegistrationFixture() (*RegistrationService, *fakeDriverRepo, *fakeProvider, *fakeObjectStore, *reconciler.MemoryStore) {
	drivers := &fakeDriverRepo{}
	barangays := &fakeBarangayRepo{known: map[string]bool{"poblacion": true}}
	provider := &fakeProvider{}
	store := &fakeObjectStore{}
	memStore := reconciler.NewMemoryStore()
	rec := reconciler.New(memStore, reconciler.Policy{})
	svc := NewRegistrationService(drivers, barangays, provider, store, rec)
	return svc, drivers, provider, store, memStore
}

func TestRegisterDriver_HappyPath(t *testing.T) {
	svc, drivers, provider, store, memStore := newRegistrationFixture()
	memStore.PutDriver(reconciler.Driver{ID: "acct-1", Barangay: "poblacion"})

	driver, err := svc.RegisterDriver(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "acct-1", driver.ID)
	assert.Equal(t, "ABC 123", driver.PlateNumberText, "plate should be normalized")
	assert.Len(t, provider.created, 1)
	assert.Len(t, store.uploaded, 2)
	require.Len(t, drivers.created, 1)

	// Opening balance lands in the ledger, not as a bare column write.
	entries := memStore.Ledger("acct-1")
	require.Len(t, entries, 1)
	assert.Equal(t, reconciler.KindRecharge, entries[0].Kind)
	assert.Equal(t, int64(500), entries[0].Amount)
}

func TestRegisterDriver_ValidationStopsBeforeSideEffects(t *testing.T) {
	svc, drivers, provider, store, _ := newRegistrationFixture()

	req := validRequest()
	req.Email = "not-an-email"

	_, err := svc.RegisterDriver(context.Background(), req)

	var ve *reconciler.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, provider.created, "no identity account before validation passes")
	assert.Empty(t, store.uploaded)
	assert.Empty(t, drivers.created)
}

func TestRegisterDriver_DuplicatePlateRejected(t *testing.T) {
	svc, drivers, provider, _, _ := newRegistrationFixture()
	drivers.plateTaken = true

	_, err := svc.RegisterDriver(context.Background(), validRequest())

	var ve *reconciler.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "plate_number", ve.Field)
	assert.Empty(t, provider.created)
}

func TestRegisterDriver_UploadFailureCompensates(t *testing.T) {
	svc, drivers, provider, store, _ := newRegistrationFixture()
	store.uploadErr = errors.New("bucket unavailable")

	_, err := svc.RegisterDriver(context.Background(), validRequest())
	require.Error(t, err)

	assert.Empty(t, drivers.created)
	require.Len(t, provider.deleted, 1, "identity account must be cleaned up")
	assert.Equal(t, "acct-1", provider.deleted[0])
}

func TestRegisterDriver_DBFailureCompensatesUploads(t *testing.T) {
	svc, drivers, provider, store, _ := newRegistrationFixture()
	drivers.createErr = errors.New("insert failed")

	_, err := svc.RegisterDriver(context.Background(), validRequest())
	require.Error(t, err)

	assert.Len(t, store.deleted, 2, "both uploads must be cleaned up")
	assert.Len(t, provider.deleted, 1)

	var pf *PartialFailureError
	assert.False(t, errors.As(err, &pf), "full cleanup should not report orphans")
}

func TestRegisterDriver_CleanupFailureReportsOrphans(t *testing.T) {
	svc, drivers, provider, store, _ := newRegistrationFixture()
	drivers.createErr = errors.New("insert failed")
	store.deleteErr = errors.New("bucket unavailable")
	provider.deleteErr = errors.New("identity unavailable")

	_, err := svc.RegisterDriver(context.Background(), validRequest())

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Len(t, pf.Orphans, 3, "two images and the identity account")
	assert.Contains(t, pf.Orphans, "identity:acct-1")
}

func TestDeleteDriver_RemovesEverything(t *testing.T) {
	svc, drivers, provider, store, _ := newRegistrationFixture()

	driver := &models.Driver{
		ID:              "acct-9",
		ProfileImageURL: "https://cdn.example/profile_images/acct-9.png",
		PlateImageURL:   "https://cdn.example/plate_images/acct-9.png",
	}
	err := svc.DeleteDriver(context.Background(), driver)
	require.NoError(t, err)

	assert.Equal(t, []string{"acct-9"}, drivers.deleted)
	assert.Len(t, store.deleted, 2)
	assert.Equal(t, []string{"acct-9"}, provider.deleted)
}
