//go:build !linux

package gpio

import "errors"

// OpenGpiod is only available on Linux.
func OpenGpiod(_, _ string) (Chip, error) {
	return nil, errors.New("gpiod backend requires linux")
}
