// Package device exposes the LED bank and the speaker as byte-oriented
// devices. Each Open returns a fresh handle that behaves like a
// single-value file: a read yields one byte and then end of file, a write
// consumes exactly one byte.
package device

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/smazurov/boardnode/internal/errcode"
)

// Device names.
const (
	LEDs    = "leds"
	Speaker = "speaker"
)

var (
	// ErrNotFound is returned by Open for an unknown device name.
	ErrNotFound = errors.New("no such device")
	// ErrHandleClosed is returned by handles used after Close.
	ErrHandleClosed = errors.New("device handle closed")
	// ErrEmptyTransfer is the cause of the fault returned for zero-length
	// writes or a source that yields no byte.
	ErrEmptyTransfer = errors.New("empty transfer")
)

// Handle is an open device.
type Handle interface {
	io.Reader
	io.Writer
	io.Seeker
	io.ReaderFrom
	io.WriterTo
	io.Closer
}

// Device can be opened any number of times concurrently.
type Device interface {
	Name() string
	Open() Handle
}

// Registry holds the registered devices by name.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		devices: make(map[string]Device),
		logger:  logger,
	}
}

// Register makes dev available under its name.
func (r *Registry) Register(dev Device) error {
	name := dev.Name()
	if name == "" {
		return errcode.New(errcode.DeviceRegistration, "register device", errors.New("empty device name"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[name]; ok {
		return errcode.New(errcode.DeviceRegistration, "register "+name,
			fmt.Errorf("device %q already registered", name))
	}
	r.devices[name] = dev
	r.logger.Info("Device registered", "device", name)
	return nil
}

// Unregister removes a device. Handles already open keep working.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[name]; ok {
		delete(r.devices, name)
		r.logger.Info("Device unregistered", "device", name)
	}
}

// Open returns a new handle on the named device.
func (r *Registry) Open(name string) (Handle, error) {
	r.mu.RLock()
	dev, ok := r.devices[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return dev.Open(), nil
}

// Names returns the registered device names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.devices))
	for n := range r.devices {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func fault(op string, cause error) error {
	return errcode.New(errcode.Fault, op, cause)
}

// readOne pulls exactly one byte from src.
func readOne(op string, src io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrEmptyTransfer
		}
		return 0, fault(op, err)
	}
	return buf[0], nil
}
