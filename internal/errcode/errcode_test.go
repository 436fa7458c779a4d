package errcode

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("device or resource busy")

	withCause := New(LineUnavailable, "line 17", cause)
	if got, want := withCause.Error(), "LINE_UNAVAILABLE: line 17: device or resource busy"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := New(InvalidMode, "mode bits 11", nil)
	if got, want := bare.Error(), "INVALID_MODE: mode bits 11"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(withCause, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestOf(t *testing.T) {
	wrapped := fmt.Errorf("startup: %w", New(IRQMapping, "button1", nil))
	if got := Of(wrapped); got != IRQMapping {
		t.Errorf("Of() = %q, want %q", got, IRQMapping)
	}
	if got := Of(errors.New("plain")); got != "" {
		t.Errorf("Of(plain) = %q, want empty", got)
	}
}

func TestErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"line unavailable", New(LineUnavailable, "", nil), -int(unix.EBUSY)},
		{"irq mapping", New(IRQMapping, "", nil), -int(unix.ENXIO)},
		{"registration", New(DeviceRegistration, "", nil), -int(unix.ENODEV)},
		{"fault", New(Fault, "", nil), -int(unix.EFAULT)},
		{"invalid mode", New(InvalidMode, "", nil), -int(unix.EINVAL)},
		{"not supported", New(NotSupported, "", nil), -int(unix.EOPNOTSUPP)},
		{"uncoded", errors.New("boom"), -int(unix.EIO)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Errno(tt.err); got != tt.want {
				t.Errorf("Errno() = %d, want %d", got, tt.want)
			}
		})
	}
}
