package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/boardnode/internal/logging"
)

// DefaultDebounceWindowMS is the debounce window used when none is configured.
const DefaultDebounceWindowMS = 300

// Runtime is the subset of the config file that can change while the daemon
// runs. The watcher reloads it on every file change.
type Runtime struct {
	Logging        logging.Config
	DebounceWindow time.Duration
}

// LoadRuntime parses the reloadable settings from path. Any error rejects the
// whole edit so a typo never resets levels to their defaults.
func LoadRuntime(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, err
	}

	var raw struct {
		Logging  map[string]string `toml:"logging"`
		Debounce struct {
			WindowMS *int64 `toml:"window_ms"`
		} `toml:"debounce"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Runtime{}, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	rt := Runtime{
		Logging:        loggingFromTable(raw.Logging),
		DebounceWindow: DefaultDebounceWindowMS * time.Millisecond,
	}
	if raw.Debounce.WindowMS != nil {
		ms := *raw.Debounce.WindowMS
		if ms <= 0 {
			return Runtime{}, fmt.Errorf("debounce.window_ms must be positive, got %d", ms)
		}
		rt.DebounceWindow = time.Duration(ms) * time.Millisecond
	}
	return rt, nil
}
