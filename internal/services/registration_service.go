package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"toda-backend/internal/identity"
	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"
	"toda-backend/internal/storage"
)

// PartialFailureError is returned when registration failed after external
// side effects were created and cleanup of those side effects also failed.
// The Orphans list names what an operator has to remove by hand.
type PartialFailureError struct {
	Orphans []string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("registration failed with orphaned resources %v: %v", e.Orphans, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// driverInserter is the slice of DriverRepository registration needs.
type driverInserter interface {
	Create(ctx context.Context, d *models.Driver) error
	ExistsByIdentity(ctx context.Context, plateNumber, name, operatorName string) (bool, bool, error)
	UpdateImageURLs(ctx context.Context, id, profileURL, plateURL string) error
	Delete(ctx context.Context, id string) error
}

type barangayGetter interface {
	Get(ctx context.Context, id string) (*models.Barangay, error)
}

// RegistrationService creates driver accounts across three systems: the
// identity provider, the image bucket and the database. Phases are ordered
// cheapest-to-reverse first, and later failures compensate by deleting
// what earlier phases created.
type RegistrationService struct {
	drivers    driverInserter
	barangays  barangayGetter
	provider   identity.Provider
	store      storage.ObjectStore
	reconciler *reconciler.Reconciler
}

func NewRegistrationService(
	drivers driverInserter,
	barangays barangayGetter,
	provider identity.Provider,
	store storage.ObjectStore,
	rec *reconciler.Reconciler,
) *RegistrationService {
	return &RegistrationService{
		drivers:    drivers,
		barangays:  barangays,
		provider:   provider,
		store:      store,
		reconciler: rec,
	}
}

// RegisterDriver runs the full registration flow and returns the created
// driver. Any error before the database insert leaves no trace; errors
// during the insert trigger compensating deletes of the identity account
// and uploaded images.
func (s *RegistrationService) RegisterDriver(ctx context.Context, req *models.RegisterDriverRequest) (*models.Driver, error) {
	// Phase 1: pure validation, nothing created yet.
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	profileImg, err := decodeImage(req.ProfileImage)
	if err != nil {
		return nil, &reconciler.ValidationError{Field: "profile_image", Reason: err.Error()}
	}
	plateImg, err := decodeImage(req.PlateImage)
	if err != nil {
		return nil, &reconciler.ValidationError{Field: "plate_image", Reason: err.Error()}
	}

	// Phase 2: identity account. Its ID becomes the driver ID everywhere.
	accountID, err := s.provider.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailExists):
			return nil, &reconciler.ValidationError{Field: "email", Reason: "already registered"}
		case errors.Is(err, identity.ErrInvalidEmail):
			return nil, &reconciler.ValidationError{Field: "email", Reason: "invalid address"}
		case errors.Is(err, identity.ErrWeakPassword):
			return nil, &reconciler.ValidationError{Field: "password", Reason: "too weak"}
		}
		return nil, err
	}

	// Phase 3: image uploads.
	var profileURL, plateURL string
	var uploadedKeys []string
	if profileImg != nil {
		profileURL, err = s.store.Upload(ctx, storage.ProfileImageKey(accountID), "image/png", profileImg)
		if err != nil {
			return nil, s.compensate(ctx, accountID, uploadedKeys, err)
		}
		uploadedKeys = append(uploadedKeys, storage.ProfileImageKey(accountID))
	}
	if plateImg != nil {
		plateURL, err = s.store.Upload(ctx, storage.PlateImageKey(accountID), "image/png", plateImg)
		if err != nil {
			return nil, s.compensate(ctx, accountID, uploadedKeys, err)
		}
		uploadedKeys = append(uploadedKeys, storage.PlateImageKey(accountID))
	}

	// Phase 4: the database row, last because it is the source of truth.
	driver := &models.Driver{
		ID:              accountID,
		Email:           req.Email,
		Name:            strings.TrimSpace(req.Name),
		OperatorName:    strings.TrimSpace(req.OperatorName),
		BarangayID:      req.BarangayID,
		TricycleNumber:  req.TricycleNumber,
		PhoneNumber:     req.PhoneNumber,
		PlateNumberText: strings.ToUpper(strings.TrimSpace(req.PlateNumberText)),
		ProfileImageURL: profileURL,
		PlateImageURL:   plateURL,
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, s.compensate(ctx, accountID, uploadedKeys, err)
	}

	// Seed the opening balance through the ledger so the projection and
	// the ledger agree from the first row.
	if req.InitialBalance > 0 {
		if _, err := s.reconciler.ApplyBalanceEvent(ctx, driver.ID, reconciler.KindRecharge, req.InitialBalance, "opening balance"); err != nil {
			log.Printf("[Registration] opening balance for %s failed: %v", driver.ID, err)
		} else {
			driver.Balance = req.InitialBalance
		}
	}

	return driver, nil
}

// DeleteDriver removes a driver everywhere: database row (cascading to
// memberships and ledger), images, then the identity account.
func (s *RegistrationService) DeleteDriver(ctx context.Context, driver *models.Driver) error {
	if err := s.drivers.Delete(ctx, driver.ID); err != nil {
		return err
	}

	var orphans []string
	if driver.ProfileImageURL != "" {
		if err := s.store.Delete(ctx, storage.ProfileImageKey(driver.ID)); err != nil {
			orphans = append(orphans, storage.ProfileImageKey(driver.ID))
		}
	}
	if driver.PlateImageURL != "" {
		if err := s.store.Delete(ctx, storage.PlateImageKey(driver.ID)); err != nil {
			orphans = append(orphans, storage.PlateImageKey(driver.ID))
		}
	}
	if err := s.provider.DeleteAccount(ctx, driver.ID); err != nil {
		orphans = append(orphans, "identity:"+driver.ID)
	}

	if len(orphans) > 0 {
		return &PartialFailureError{Orphans: orphans, Err: errors.New("driver row deleted but cleanup incomplete")}
	}
	return nil
}

func (s *RegistrationService) validate(ctx context.Context, req *models.RegisterDriverRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return &reconciler.ValidationError{Field: "name", Reason: "must not be empty"}
	case strings.TrimSpace(req.OperatorName) == "":
		return &reconciler.ValidationError{Field: "operator_name", Reason: "must not be empty"}
	case strings.TrimSpace(req.PlateNumberText) == "":
		return &reconciler.ValidationError{Field: "plate_number", Reason: "must not be empty"}
	case req.BarangayID == "":
		return &reconciler.ValidationError{Field: "barangay_id", Reason: "must not be empty"}
	case len(req.Password) < 6:
		return &reconciler.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	case req.InitialBalance < 0:
		return &reconciler.ValidationError{Field: "initial_balance", Reason: "must not be negative"}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return &reconciler.ValidationError{Field: "email", Reason: "invalid address"}
	}

	if _, err := s.barangays.Get(ctx, req.BarangayID); err != nil {
		return &reconciler.NotFoundError{Kind: "barangay", ID: req.BarangayID}
	}

	plate := strings.ToUpper(strings.TrimSpace(req.PlateNumberText))
	plateTaken, pairTaken, err := s.drivers.ExistsByIdentity(ctx, plate, strings.TrimSpace(req.Name), strings.TrimSpace(req.OperatorName))
	if err != nil {
		return &reconciler.StorageError{Op: "uniqueness check", Err: err}
	}
	if plateTaken {
		return &reconciler.ValidationError{Field: "plate_number", Reason: "already registered"}
	}
	if pairTaken {
		return &reconciler.ValidationError{Field: "name", Reason: "driver already registered under this operator"}
	}
	return nil
}

// compensate deletes the identity account and uploaded images created by
// a registration that failed midway. If cleanup itself fails the caller
// gets a PartialFailureError naming the orphans.
func (s *RegistrationService) compensate(ctx context.Context, accountID string, uploadedKeys []string, cause error) error {
	var orphans []string
	for _, key := range uploadedKeys {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("[Registration] cleanup of %s failed: %v", key, err)
			orphans = append(orphans, key)
		}
	}
	if err := s.provider.DeleteAccount(ctx, accountID); err != nil {
		log.Printf("[Registration] cleanup of identity account %s failed: %v", accountID, err)
		orphans = append(orphans, "identity:"+accountID)
	}

	if len(orphans) > 0 {
		return &PartialFailureError{Orphans: orphans, Err: cause}
	}
	return cause
}

// decodeImage accepts a base64 data URL or raw base64 and returns the
// bytes, or nil when the field was left empty.
func decodeImage(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	if idx := strings.Index(data, ","); idx >= 0 && strings.HasPrefix(data, "data:") {
		data = data[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, errors.New("invalid base64 image data")
	}
	if len(raw) > 5<<20 {
		return nil, errors.New("image exceeds 5MB limit")
	}
	return raw, nil
}
