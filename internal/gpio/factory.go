package gpio

import (
	"fmt"
	"os"
	"strings"

	"github.com/smazurov/boardnode/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// SimLines is the size of the simulated chip, matching a 40-pin header.
const SimLines = 28

// Backend names accepted by Open.
const (
	BackendAuto  = "auto"
	BackendGpiod = "gpiod"
	BackendSim   = "sim"
)

// Open returns the chip for backend. "auto" picks gpiod on a Raspberry Pi and
// falls back to the simulator everywhere else.
func Open(backend, chipName, consumer string, logger logging.Logger) (Chip, error) {
	switch backend {
	case BackendSim:
		return NewSimChip(SimLines), nil
	case BackendGpiod:
		return OpenGpiod(chipName, consumer)
	case BackendAuto, "":
		boardModel := detectBoard()
		if logger != nil {
			logger.Info("Detecting board for GPIO backend", "board_model", boardModel)
		}
		if strings.Contains(boardModel, "Raspberry Pi") {
			chip, err := OpenGpiod(chipName, consumer)
			if err == nil {
				return chip, nil
			}
			if logger != nil {
				logger.Warn("Failed to open GPIO chip, using simulator", "chip", chipName, "error", err)
			}
		} else if logger != nil {
			logger.Info("No supported board detected, using simulated GPIO chip", "board_model", boardModel)
		}
		return NewSimChip(SimLines), nil
	default:
		return nil, fmt.Errorf("unknown GPIO backend %q", backend)
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
