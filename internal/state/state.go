// Package state persists the committed record of applied resources: the sole
// source of truth that subsequent plans diff against.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/strata-io/strata/internal/ir"
)

// Manager is the local-file state backend.
type Manager struct {
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Read loads the state from the configured path. A missing file yields a
// fresh empty state with a new lineage. Encrypted files are transparently
// decrypted before decoding.
func (m *Manager) Read(ctx context.Context) (*ir.State, error) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return &ir.State{Version: 1, Serial: 0, Lineage: uuid.New().String()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", m.path, err)
	}

	return DecodeState(raw)
}

// Write saves the state to the configured path. If STRATA_STATE_ENCRYPTION_KEY
// is set, the file is transparently encrypted.
func (m *Manager) Write(ctx context.Context, state *ir.State) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	content, err := EncodeState(state)
	if err != nil {
		return err
	}

	encrypted, err := EncryptState(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}

	// Write to a temp file and rename, so a crash mid-write never leaves a
	// truncated state file behind.
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0600); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", m.path, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", m.path, err)
	}

	return nil
}

// EncodeState serializes a state to its durable JSON form.
func EncodeState(state *ir.State) ([]byte, error) {
	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(content, '\n'), nil
}

// DecodeState parses durable state content, decrypting if necessary and
// rehydrating attribute references to their in-memory form.
func DecodeState(raw []byte) (*ir.State, error) {
	if IsEncrypted(raw) {
		decrypted, err := DecryptState(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt state: %w", err)
		}
		raw = decrypted
	}

	var state ir.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if state.Version == 0 {
		state.Version = 1
	}
	for _, res := range state.Resources {
		if res.Attributes != nil {
			res.Attributes = ir.RehydrateReferences(res.Attributes).(map[string]any)
		}
	}
	return &state, nil
}
