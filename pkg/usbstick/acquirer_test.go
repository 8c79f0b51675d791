package usbstick

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

type stubEnumerator struct{ mock.Mock }

func (e *stubEnumerator) ListCandidates(vendorID uint16) ([]ant.TransceiverID, error) {
	ret := e.Called(vendorID)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).([]ant.TransceiverID), ret.Error(1)
}

func (e *stubEnumerator) TryClaim(id ant.TransceiverID) (io.Closer, error) {
	ret := e.Called(id)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(io.Closer), ret.Error(1)
}

type stubHandle struct{ mock.Mock }

func (h *stubHandle) Close() error { return h.Called().Error(0) }

var (
	stickA = ant.TransceiverID{Bus: 1, Address: 4, Vendor: VendorDynastream, Product: ProductANTUSB2}
	stickB = ant.TransceiverID{Bus: 1, Address: 5, Vendor: VendorDynastream, Product: ProductANTUSBm}
	other  = ant.TransceiverID{Bus: 2, Address: 1, Vendor: VendorDynastream, Product: ProductANTUSB1}
)

func TestAcquireFirstFree(t *testing.T) {
	enum := &stubEnumerator{}
	h := &stubHandle{}
	enum.On("ListCandidates", VendorDynastream).Return([]ant.TransceiverID{stickA, stickB}, nil)
	enum.On("TryClaim", stickA).Return(h, nil)
	h.On("Close").Return(nil).Once()

	id, err := NewAcquirer(enum, Config{}).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stickA, id)

	enum.AssertNotCalled(t, "TryClaim", stickB)
	h.AssertExpectations(t)
}

func TestAcquireSkipsClaimedStick(t *testing.T) {
	enum := &stubEnumerator{}
	h := &stubHandle{}
	enum.On("ListCandidates", VendorDynastream).Return([]ant.TransceiverID{stickA, stickB}, nil)
	enum.On("TryClaim", stickA).Return(nil, ErrAlreadyClaimed)
	enum.On("TryClaim", stickB).Return(h, nil)
	h.On("Close").Return(nil)

	id, err := NewAcquirer(enum, Config{}).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stickB, id)
	h.AssertCalled(t, "Close")
}

func TestAcquireSkipsUnsupportedProduct(t *testing.T) {
	enum := &stubEnumerator{}
	enum.On("ListCandidates", VendorDynastream).Return([]ant.TransceiverID{other}, nil)

	_, err := NewAcquirer(enum, Config{}).Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNoDeviceAvailable)
	enum.AssertNotCalled(t, "TryClaim", mock.Anything)
}

func TestAcquireCustomProducts(t *testing.T) {
	enum := &stubEnumerator{}
	h := &stubHandle{}
	enum.On("ListCandidates", uint16(0x1234)).Return([]ant.TransceiverID{other}, nil)
	enum.On("TryClaim", other).Return(h, nil)
	h.On("Close").Return(nil)

	id, err := NewAcquirer(enum, Config{VendorID: 0x1234, Products: []uint16{0x1004}}).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, other, id)
}

func TestAcquireNoneAvailable(t *testing.T) {
	tests := []struct {
		name       string
		candidates []ant.TransceiverID
	}{
		{"NoDevices", nil},
		{"AllClaimed", []ant.TransceiverID{stickA, stickB}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enum := &stubEnumerator{}
			enum.On("ListCandidates", VendorDynastream).Return(tt.candidates, nil)
			enum.On("TryClaim", mock.Anything).Return(nil, ErrAlreadyClaimed)

			_, err := NewAcquirer(enum, Config{}).Acquire(context.Background())
			assert.ErrorIs(t, err, ErrNoDeviceAvailable)
		})
	}
}

func TestAcquireListError(t *testing.T) {
	enum := &stubEnumerator{}
	listErr := errors.New("libusb: not supported")
	enum.On("ListCandidates", VendorDynastream).Return(nil, listErr)

	_, err := NewAcquirer(enum, Config{}).Acquire(context.Background())
	assert.ErrorIs(t, err, listErr)
}

func TestAcquireProbeCloseErrorIgnored(t *testing.T) {
	enum := &stubEnumerator{}
	h := &stubHandle{}
	enum.On("ListCandidates", VendorDynastream).Return([]ant.TransceiverID{stickA}, nil)
	enum.On("TryClaim", stickA).Return(h, nil)
	h.On("Close").Return(errors.New("close failed"))

	id, err := NewAcquirer(enum, Config{}).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stickA, id)
}

func TestAcquireCancelled(t *testing.T) {
	enum := &stubEnumerator{}
	enum.On("ListCandidates", VendorDynastream).Return([]ant.TransceiverID{stickA}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAcquirer(enum, Config{}).Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	enum.AssertNotCalled(t, "TryClaim", mock.Anything)
}
