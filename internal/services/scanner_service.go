package services

import (
	"context"
	"log"
	"net/http"
	"time"

	"toda-backend/internal/models"
	"toda-backend/internal/reconciler"
)

// TapResult is the acknowledgment echoed back to the scanning device.
type TapResult struct {
	DriverID   string `json:"driver_id"`
	Barangay   string `json:"barangay"`
	Direction  string `json:"direction"`
	InQueue    bool   `json:"in_queue"`
	Balance    int64  `json:"balance"`
	FeeCharged int64  `json:"fee_charged,omitempty"`
}

type feeSource interface {
	Get(ctx context.Context, id string) (*models.Barangay, error)
}

// ScannerService turns entrance-device taps into reconciler events. An
// entrance tap charges the barangay's terminal fee and then enters the
// queue; if the queue entry is rejected after the charge, the charge is
// reversed so no rejected tap moves money.
type ScannerService struct {
	reconciler *reconciler.Reconciler
	barangays  feeSource

	buzzerURL string
	client    *http.Client
}

func NewScannerService(rec *reconciler.Reconciler, barangays feeSource, buzzerURL string, timeout time.Duration) *ScannerService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ScannerService{
		reconciler: rec,
		barangays:  barangays,
		buzzerURL:  buzzerURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// RecordTap applies one scanner tap. Enter charges the terminal fee first
// so that an insufficient balance blocks entry; Exit only removes the
// driver from the queue.
func (s *ScannerService) RecordTap(ctx context.Context, driverID, barangayID string, direction reconciler.Direction) (*TapResult, error) {
	if direction == reconciler.DirectionExit {
		snap, err := s.reconciler.ApplyQueueEvent(ctx, driverID, barangayID, direction)
		if err != nil {
			return nil, err
		}
		s.triggerBuzzer()
		return &TapResult{
			DriverID:  snap.DriverID,
			Barangay:  snap.Barangay,
			Direction: string(direction),
			InQueue:   snap.InQueue,
			Balance:   snap.Balance,
		}, nil
	}

	if direction != reconciler.DirectionEnter {
		return nil, &reconciler.ValidationError{Field: "direction", Reason: "must be enter or exit"}
	}

	barangay, err := s.barangays.Get(ctx, barangayID)
	if err != nil {
		return nil, &reconciler.NotFoundError{Kind: "barangay", ID: barangayID}
	}

	var charged int64
	if barangay.TerminalFee > 0 {
		if _, err := s.reconciler.ApplyBalanceEvent(ctx, driverID, reconciler.KindCharge, barangay.TerminalFee, "terminal fee at "+barangayID); err != nil {
			return nil, err
		}
		charged = barangay.TerminalFee
	}

	snap, err := s.reconciler.ApplyQueueEvent(ctx, driverID, barangayID, reconciler.DirectionEnter)
	if err != nil {
		if charged > 0 {
			// The fee landed but the entry was rejected; reverse it.
			if _, rerr := s.reconciler.ApplyBalanceEvent(ctx, driverID, reconciler.KindRecharge, charged, "terminal fee reversal"); rerr != nil {
				log.Printf("[Scanner] fee reversal for %s failed: %v", driverID, rerr)
			}
		}
		return nil, err
	}

	s.triggerBuzzer()
	return &TapResult{
		DriverID:   snap.DriverID,
		Barangay:   snap.Barangay,
		Direction:  string(reconciler.DirectionEnter),
		InQueue:    snap.InQueue,
		Balance:    snap.Balance,
		FeeCharged: charged,
	}, nil
}

// TriggerBuzzer pings the entrance device directly. Exposed for the
// dashboard's manual test button.
func (s *ScannerService) TriggerBuzzer() error {
	if s.buzzerURL == "" {
		return nil
	}
	resp, err := s.client.Get(s.buzzerURL)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// triggerBuzzer fires after a successful tap, best effort and off the
// request path.
func (s *ScannerService) triggerBuzzer() {
	if s.buzzerURL == "" {
		return
	}
	go func() {
		if err := s.TriggerBuzzer(); err != nil {
			log.Printf("[Scanner] buzzer trigger failed: %v", err)
		}
	}()
}
