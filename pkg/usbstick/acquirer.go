package usbstick

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// Dynastream ANT USB stick identifiers.
const (
	// VendorDynastream is the USB vendor ID of Garmin/Dynastream sticks.
	VendorDynastream uint16 = 0x0fcf

	// ProductANTUSB1 is the original stick with a CP210x serial bridge.
	ProductANTUSB1 uint16 = 0x1004

	// ProductANTUSB2 is the ANTUSB2 stick.
	ProductANTUSB2 uint16 = 0x1008

	// ProductANTUSBm is the ANTUSB-m stick.
	ProductANTUSBm uint16 = 0x1009
)

// DefaultProducts lists the product IDs accepted by default.
var DefaultProducts = []uint16{ProductANTUSB2, ProductANTUSBm}

// Acquirer errors.
var (
	ErrNoDeviceAvailable = errors.New("no ANT devices available")
	ErrAlreadyClaimed    = errors.New("device already claimed")
)

// Enumerator lists and claims USB devices.
type Enumerator interface {
	// ListCandidates returns every attached device with the vendor ID.
	ListCandidates(vendorID uint16) ([]ant.TransceiverID, error)

	// TryClaim opens the device exclusively. It fails with an error
	// wrapping ErrAlreadyClaimed if another process holds it.
	TryClaim(id ant.TransceiverID) (io.Closer, error)
}

// Config configures an Acquirer.
type Config struct {
	VendorID uint16
	Products []uint16
	Logger   *slog.Logger
}

// Acquirer probes candidate sticks for one that can be claimed.
type Acquirer struct {
	enum     Enumerator
	vendorID uint16
	products []uint16
	logger   *slog.Logger
}

// NewAcquirer creates an Acquirer. Zero config values select the
// Dynastream vendor and DefaultProducts.
func NewAcquirer(enum Enumerator, cfg Config) *Acquirer {
	if cfg.VendorID == 0 {
		cfg.VendorID = VendorDynastream
	}
	if len(cfg.Products) == 0 {
		cfg.Products = DefaultProducts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Acquirer{
		enum:     enum,
		vendorID: cfg.VendorID,
		products: slices.Clone(cfg.Products),
		logger:   logger,
	}
}

// Acquire returns the identity of the first candidate that could be
// claimed. The probe handle is closed before returning.
func (a *Acquirer) Acquire(ctx context.Context) (ant.TransceiverID, error) {
	candidates, err := a.enum.ListCandidates(a.vendorID)
	if err != nil {
		return ant.TransceiverID{}, fmt.Errorf("list USB devices: %w", err)
	}

	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return ant.TransceiverID{}, err
		}
		if !slices.Contains(a.products, id.Product) {
			a.logger.Debug("skipping device with unsupported product", "device", id.String())
			continue
		}

		h, err := a.enum.TryClaim(id)
		if err != nil {
			// The other stick is probably held by the receiving application.
			a.logger.Info("device busy, trying next", "device", id.String(), "error", err)
			continue
		}
		if err := h.Close(); err != nil {
			a.logger.Warn("failed to release probe handle", "device", id.String(), "error", err)
		}

		a.logger.Info("acquired ANT stick", "device", id.String())
		return id, nil
	}

	return ant.TransceiverID{}, ErrNoDeviceAvailable
}
