package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds process-level knobs that do not belong to the game file.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// TickPeriodMs of 0 selects manual mode: ticks only advance through the
	// tick endpoint.
	TickPeriodMs         int  `yaml:"tick_period_ms"`
	RandomizeSpawnPoints bool `yaml:"randomize_spawn_points"`
	SessionCapacity      int  `yaml:"session_capacity"`

	StateFile         string `yaml:"state_file"`
	SaveStatePeriodMs int    `yaml:"save_state_period_ms"`

	// ArchiveEveryTicks > 0 keeps a copy of the first save at or past every
	// multiple of it; ArchiveKeep bounds how many copies stay on disk.
	ArchiveEveryTicks int `yaml:"archive_every_ticks"`
	ArchiveKeep       int `yaml:"archive_keep"`

	StatePushMs int `yaml:"state_push_ms"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickPeriodMs:    50,
		SessionCapacity: 8,
		StatePushMs:     100,
		ArchiveKeep:     24,
	}
}

// Load overlays the YAML file at path onto Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickPeriodMs < 0 || t.SaveStatePeriodMs < 0 || t.StatePushMs < 0 || t.ArchiveEveryTicks < 0 {
		return t, fmt.Errorf("tuning.yaml: negative period")
	}
	if t.ArchiveKeep < 0 {
		return t, fmt.Errorf("tuning.yaml: archive_keep must be >= 0")
	}
	if t.SessionCapacity <= 0 {
		return t, fmt.Errorf("tuning.yaml: session_capacity must be > 0")
	}
	return t, nil
}

func (t Tuning) TickPeriod() time.Duration {
	return time.Duration(t.TickPeriodMs) * time.Millisecond
}

func (t Tuning) SaveStatePeriod() time.Duration {
	return time.Duration(t.SaveStatePeriodMs) * time.Millisecond
}

func (t Tuning) StatePush() time.Duration {
	if t.StatePushMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(t.StatePushMs) * time.Millisecond
}
