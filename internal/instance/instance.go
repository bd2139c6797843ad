// Package instance is the exclusive owner of instance.json: schema-
// versioned, atomically-written, name-unique instance records, plus the
// per-instance install lock and cross-reference queries other components
// need before deleting a shared version.
package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/mcversion"
)

const CurrentSchemaVersion = 1

type State string

const (
	StateReady      State = "ready"
	StateInstalling State = "installing"
	StateRunning    State = "running"
	StateCrashed    State = "crashed"
	StateError      State = "error"
)

// Instance is the persisted record for a single playable configuration.
type Instance struct {
	SchemaVersion int    `json:"schemaVersion"`
	ID            string `json:"id"`
	Name          string `json:"name"`

	// Version is the launcher-visible id: a vanilla MC id, or a derived
	// loader id once a loader has been installed.
	Version       string              `json:"version"`
	MCVersion     string              `json:"mc_version"`
	Loader        mcversion.LoaderType `json:"loader"`
	LoaderVersion string              `json:"loader_version"`

	Icon            string    `json:"icon,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastPlayed      time.Time `json:"last_played,omitempty"`
	PlaytimeMinutes int64     `json:"playtime_minutes"`
	LastCrash       string    `json:"last_crash,omitempty"`

	State State `json:"state"`

	MinMemory         int    `json:"min_memory,omitempty"`
	MaxMemory         int    `json:"max_memory,omitempty"`
	JavaPathOverride  string `json:"java_path_override,omitempty"`
	JavaArgs          string `json:"java_args,omitempty"`
	JavaWarningIgnored bool  `json:"java_warning_ignored,omitempty"`
}

// Store owns instance.json for every instance under root. All mutation
// goes through Save/Create/Delete; every other component treats Instance
// values it reads as a snapshot, not something to write back directly.
type Store struct {
	root corepath.Root

	mu        sync.Mutex
	instances map[string]*Instance
	installing map[string]bool
}

func NewStore(root corepath.Root) *Store {
	return &Store{
		root:       root,
		instances:  make(map[string]*Instance),
		installing: make(map[string]bool),
	}
}

// Load reads every instance.json under root into memory, migrating
// older schema versions forward and refusing to load newer ones.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root.InstancesDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return corerr.Wrap(corerr.Filesystem, "reading instances directory", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		data, err := os.ReadFile(s.root.InstanceJSON(id))
		if err != nil {
			continue
		}

		inst, err := decodeInstance(data)
		if err != nil {
			continue
		}

		var probe struct {
			SchemaVersion int `json:"schemaVersion"`
		}
		if json.Unmarshal(data, &probe) == nil && probe.SchemaVersion < CurrentSchemaVersion {
			if err := s.persistLocked(inst); err != nil {
				return err
			}
		}

		s.instances[inst.ID] = inst
	}

	return nil
}

// decodeInstance parses and schema-checks a persisted instance.json,
// migrating it forward in memory when the on-disk schema is older than
// current; Load re-persists such migrated records.
func decodeInstance(data []byte) (*Instance, error) {
	var probe struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, corerr.Wrap(corerr.SchemaInvalid, "decoding instance.json", err)
	}
	if probe.SchemaVersion > CurrentSchemaVersion {
		return nil, corerr.New(corerr.SchemaTooNew, fmt.Sprintf("instance schema %d is newer than supported %d", probe.SchemaVersion, CurrentSchemaVersion))
	}

	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, corerr.Wrap(corerr.SchemaInvalid, "decoding instance.json", err)
	}

	if inst.SchemaVersion == 0 {
		inst.SchemaVersion = CurrentSchemaVersion
	}
	if inst.State == "" {
		inst.State = StateReady
	}

	return &inst, nil
}

// List returns a snapshot of every loaded instance.
func (s *Store) List() []*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		cp := *inst
		out = append(out, &cp)
	}
	return out
}

func (s *Store) Get(id string) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, corerr.New(corerr.NotFound, "unknown instance: "+id)
	}
	cp := *inst
	return &cp, nil
}

// Create builds a new instance, suffixing name with " (N)" on collision,
// and persists it immediately in state "ready".
func (s *Store) Create(name, version, mcVersion string, loader mcversion.LoaderType) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst := &Instance{
		SchemaVersion: CurrentSchemaVersion,
		ID:            uuid.NewString(),
		Name:          s.uniqueNameLocked(name),
		Version:       version,
		MCVersion:     mcVersion,
		Loader:        loader,
		CreatedAt:     time.Now(),
		State:         StateReady,
	}

	if err := s.persistLocked(inst); err != nil {
		return nil, err
	}

	s.instances[inst.ID] = inst
	cp := *inst
	return &cp, nil
}

func (s *Store) uniqueNameLocked(name string) string {
	taken := make(map[string]bool, len(s.instances))
	for _, inst := range s.instances {
		taken[inst.Name] = true
	}
	if !taken[name] {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Save persists updated fields of an existing instance through
// corepath.AtomicWrite, so a failure partway through leaves the existing
// file untouched; the in-memory record is replaced only once the write
// has succeeded.
func (s *Store) Save(updated *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[updated.ID]; !ok {
		return corerr.New(corerr.NotFound, "unknown instance: "+updated.ID)
	}

	cp := *updated
	if err := s.persistLocked(&cp); err != nil {
		return err
	}

	s.instances[cp.ID] = &cp
	return nil
}

func (s *Store) persistLocked(inst *Instance) error {
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return corerr.Wrap(corerr.Internal, "encoding instance", err)
	}
	return corepath.AtomicWrite(s.root.InstanceJSON(inst.ID), data)
}

// Delete removes an instance's record and directory. When deleteVersion
// is set, versions/<vid>/ is also removed, but only if IsOnlyUserOf
// confirms no other instance references it.
func (s *Store) Delete(id string, deleteVersion bool) error {
	s.mu.Lock()
	inst, ok := s.instances[id]
	if !ok {
		s.mu.Unlock()
		return corerr.New(corerr.NotFound, "unknown instance: "+id)
	}
	delete(s.instances, id)
	s.mu.Unlock()

	if err := os.RemoveAll(s.root.InstanceDir(id)); err != nil {
		return corerr.Wrap(corerr.Filesystem, "removing instance directory", err)
	}

	if deleteVersion && s.IsOnlyUserOf(inst.Version, id) {
		if err := os.RemoveAll(s.root.VersionDir(inst.Version)); err != nil {
			return corerr.Wrap(corerr.Filesystem, "removing version directory", err)
		}
	}

	return nil
}

// IsOnlyUserOf reports whether no instance other than excludingID
// references versionID as either its Version or MCVersion.
func (s *Store) IsOnlyUserOf(versionID, excludingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inst := range s.instances {
		if inst.ID == excludingID {
			continue
		}
		if inst.Version == versionID || inst.MCVersion == versionID {
			return false
		}
	}
	return true
}

// BeginInstall takes the per-instance install lock, returning Busy if an
// install for this instance is already in flight. Installs are never
// queued — a second caller fails immediately.
func (s *Store) BeginInstall(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.installing[id] {
		return corerr.New(corerr.Busy, "install already in progress for instance "+id)
	}
	s.installing[id] = true
	return nil
}

func (s *Store) EndInstall(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.installing, id)
}

// UpdateLastPlayed bumps last_played to now and persists.
func (s *Store) UpdateLastPlayed(id string) error {
	inst, err := s.Get(id)
	if err != nil {
		return err
	}
	inst.LastPlayed = time.Now()
	return s.Save(inst)
}
