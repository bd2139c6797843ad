// Package config handles the launcher's persisted user settings.
package config

import (
	"encoding/json"
	"os"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
)

// Settings is the user-editable configuration persisted at
// root.SettingsPath(). Memory values are in megabytes.
type Settings struct {
	MinMemory int `json:"min_memory"`
	MaxMemory int `json:"max_memory"`

	GlobalJavaPath string `json:"global_java_path"`
	GlobalJavaArgs string `json:"global_java_args"`

	SkipJavaCheck bool `json:"skip_java_check"`
	CloseOnLaunch bool `json:"close_on_launch"`
	KeepLogsOpen  bool `json:"keep_logs_open"`
}

func Default() *Settings {
	return &Settings{
		MinMemory:     512,
		MaxMemory:     2048,
		SkipJavaCheck: false,
		CloseOnLaunch: false,
		KeepLogsOpen:  false,
	}
}

// Load reads Settings from root.SettingsPath(), returning defaults
// untouched if none has been saved yet.
func Load(root corepath.Root) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(root.SettingsPath())
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, corerr.Wrap(corerr.Filesystem, "reading settings", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, corerr.Wrap(corerr.SchemaInvalid, "decoding settings", err)
	}
	return s, nil
}

// Save persists Settings atomically to root.SettingsPath().
func (s *Settings) Save(root corepath.Root) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return corerr.Wrap(corerr.Internal, "encoding settings", err)
	}
	return corepath.AtomicWrite(root.SettingsPath(), data)
}
