package migrate

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Resolution action types, the "type" field of an action table in
// resolutions.toml.
const (
	ActionAcceptChecksum  = "accept_checksum"
	ActionSkip            = "skip"
	ActionBaseline        = "baseline"
	ActionRename          = "rename"
	ActionResolveConflict = "resolve_conflict"
	ActionForceApply      = "force_apply"
)

// Action describes how one migration id is reconciled. Type selects the
// variant and the remaining fields belong to specific variants: checksums
// to accept_checksum, FromID to rename, ConflictingIDs and Strategy to
// resolve_conflict.
type Action struct {
	Type           string   `toml:"type"`
	FromChecksum   string   `toml:"from_checksum,omitempty"`
	ToChecksum     string   `toml:"to_checksum,omitempty"`
	FromID         string   `toml:"from_id,omitempty"`
	ConflictingIDs []string `toml:"conflicting_ids,omitempty"`
	Strategy       string   `toml:"strategy,omitempty"`
}

// Resolution is one operator-authored entry. Reason is mandatory so the
// file documents itself; ExpiresAt bounds how long the entry is honored.
type Resolution struct {
	Action    Action            `toml:"action"`
	Reason    string            `toml:"reason"`
	CreatedAt time.Time         `toml:"created_at"`
	CreatedBy string            `toml:"created_by,omitempty"`
	ExpiresAt *time.Time        `toml:"expires_at,omitempty"`
	Metadata  map[string]string `toml:"metadata,omitempty"`
}

// Expired reports whether the resolution carries an expiry at or before now.
func (r *Resolution) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Resolutions is the resolutions.toml document: migration id to resolution.
type Resolutions struct {
	Resolutions map[string]*Resolution `toml:"resolutions"`
}

// NewResolutions returns an empty config.
func NewResolutions() *Resolutions {
	return &Resolutions{Resolutions: map[string]*Resolution{}}
}

// LoadResolutions reads a resolutions.toml. A missing file is not an
// error; it yields an empty config.
func LoadResolutions(path string) (*Resolutions, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewResolutions(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("prax: reading resolutions %s: %w", path, err)
	}
	r := NewResolutions()
	if err := toml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("prax: parsing resolutions %s: %w", path, err)
	}
	if r.Resolutions == nil {
		r.Resolutions = map[string]*Resolution{}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Save writes the config to path.
func (r *Resolutions) Save(path string) error {
	data, err := toml.Marshal(r)
	if err != nil {
		return fmt.Errorf("prax: encoding resolutions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("prax: writing resolutions %s: %w", path, err)
	}
	return nil
}

// Set records a resolution for id.
func (r *Resolutions) Set(id string, res *Resolution) {
	if r.Resolutions == nil {
		r.Resolutions = map[string]*Resolution{}
	}
	r.Resolutions[id] = res
}

// Lookup returns the resolution for id regardless of expiry.
func (r *Resolutions) Lookup(id string) (*Resolution, bool) {
	if r == nil {
		return nil, false
	}
	res, ok := r.Resolutions[id]
	return res, ok
}

// For returns the resolution in force for id at now, or nil when the id
// has none or its entry expired.
func (r *Resolutions) For(id string, now time.Time) *Resolution {
	res, ok := r.Lookup(id)
	if !ok || res.Expired(now) {
		return nil
	}
	return res
}

// EffectiveID maps a file id to its history id: when a live rename entry
// targets id, the history row lives under the old id.
func (r *Resolutions) EffectiveID(id string, now time.Time) string {
	if res := r.For(id, now); res != nil && res.Action.Type == ActionRename && res.Action.FromID != "" {
		return res.Action.FromID
	}
	return id
}

// Validate checks every entry for the fields its action type requires.
// All findings are reported at once.
func (r *Resolutions) Validate() error {
	if r == nil {
		return nil
	}
	var errs []error
	for id, res := range r.Resolutions {
		if res == nil {
			errs = append(errs, fmt.Errorf("prax: resolution %q is empty", id))
			continue
		}
		if res.Reason == "" {
			errs = append(errs, fmt.Errorf("prax: resolution %q has no reason", id))
		}
		switch res.Action.Type {
		case ActionAcceptChecksum:
			if res.Action.FromChecksum == "" || res.Action.ToChecksum == "" {
				errs = append(errs, fmt.Errorf("prax: resolution %q: accept_checksum requires from_checksum and to_checksum", id))
			}
		case ActionRename:
			if res.Action.FromID == "" {
				errs = append(errs, fmt.Errorf("prax: resolution %q: rename requires from_id", id))
			}
		case ActionResolveConflict:
			if len(res.Action.ConflictingIDs) == 0 || res.Action.Strategy == "" {
				errs = append(errs, fmt.Errorf("prax: resolution %q: resolve_conflict requires conflicting_ids and strategy", id))
			}
		case ActionSkip, ActionBaseline, ActionForceApply:
		case "":
			errs = append(errs, fmt.Errorf("prax: resolution %q has no action type", id))
		default:
			errs = append(errs, fmt.Errorf("prax: resolution %q has unknown action type %q", id, res.Action.Type))
		}
	}
	return errors.Join(errs...)
}
