package device

import (
	"io"

	"github.com/smazurov/boardnode/internal/speaker"
)

// SpeakerDevice is the write-only "speaker" device.
type SpeakerDevice struct {
	spk *speaker.Speaker
}

// NewSpeakerDevice wraps spk.
func NewSpeakerDevice(spk *speaker.Speaker) *SpeakerDevice {
	return &SpeakerDevice{spk: spk}
}

// Name implements Device.
func (d *SpeakerDevice) Name() string { return Speaker }

// Open implements Device.
func (d *SpeakerDevice) Open() Handle {
	return &speakerHandle{spk: d.spk}
}

type speakerHandle struct {
	spk *speaker.Speaker
}

func (h *speakerHandle) Read([]byte) (int, error) {
	_, err := h.spk.Read()
	return 0, err
}

func (h *speakerHandle) WriteTo(io.Writer) (int64, error) {
	_, err := h.spk.Read()
	return 0, err
}

func (h *speakerHandle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, fault("write speaker", ErrEmptyTransfer)
	}
	if err := h.spk.Write(p[0]); err != nil {
		return 0, err
	}
	return 1, nil
}

func (h *speakerHandle) ReadFrom(r io.Reader) (int64, error) {
	b, err := readOne("write speaker", r)
	if err != nil {
		return 0, err
	}
	if err := h.spk.Write(b); err != nil {
		return 0, err
	}
	return 1, nil
}

// Seek is a no-op; the speaker has no readable content.
func (h *speakerHandle) Seek(int64, int) (int64, error) { return 0, nil }

func (h *speakerHandle) Close() error { return nil }
