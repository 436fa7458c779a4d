package device

import (
	"errors"
	"io"
	"sync"

	"github.com/smazurov/boardnode/internal/led"
)

// LEDDevice is the read/write "leds" device.
type LEDDevice struct {
	bank *led.Bank
}

// NewLEDDevice wraps bank.
func NewLEDDevice(bank *led.Bank) *LEDDevice {
	return &LEDDevice{bank: bank}
}

// Name implements Device.
func (d *LEDDevice) Name() string { return LEDs }

// Open implements Device.
func (d *LEDDevice) Open() Handle {
	return &ledHandle{bank: d.bank}
}

type ledHandle struct {
	bank   *led.Bank
	mu     sync.Mutex
	pos    int64
	closed bool
}

// Read returns the bank value on the first call and io.EOF afterwards.
func (h *ledHandle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrHandleClosed
	}
	if h.pos > 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	v, err := h.bank.Decode()
	if err != nil {
		return 0, err
	}
	p[0] = v
	h.pos = 1
	return 1, nil
}

// WriteTo copies the bank value to w. A failed copy leaves the position
// unchanged so the value can be read again.
func (h *ledHandle) WriteTo(w io.Writer) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrHandleClosed
	}
	if h.pos > 0 {
		return 0, nil
	}
	v, err := h.bank.Decode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write([]byte{v})
	if err == nil && n != 1 {
		err = io.ErrShortWrite
	}
	if err != nil {
		return 0, fault("read leds", err)
	}
	h.pos = 1
	return 1, nil
}

// Write applies p[0] as a mode byte and reports one byte consumed; the rest
// of p is ignored.
func (h *ledHandle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, fault("write leds", ErrEmptyTransfer)
	}
	if err := h.encode(p[0]); err != nil {
		return 0, err
	}
	return 1, nil
}

// ReadFrom takes exactly one byte from r. If r fails the bank is untouched.
func (h *ledHandle) ReadFrom(r io.Reader) (int64, error) {
	b, err := readOne("write leds", r)
	if err != nil {
		return 0, err
	}
	if err := h.encode(b); err != nil {
		return 0, err
	}
	return 1, nil
}

func (h *ledHandle) encode(b byte) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrHandleClosed
	}
	return h.bank.Encode(b)
}

func (h *ledHandle) Seek(offset int64, whence int) (int64, error) {
	return seek(&h.mu, &h.pos, offset, whence)
}

func (h *ledHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// seek implements io.Seeker over a one-byte file.
func seek(mu *sync.Mutex, pos *int64, offset int64, whence int) (int64, error) {
	mu.Lock()
	defer mu.Unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = *pos + offset
	case io.SeekEnd:
		abs = 1 + offset
	default:
		return 0, errors.New("seek: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}
	*pos = abs
	return abs, nil
}
