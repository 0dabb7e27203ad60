package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
)

const manifestVersion = 1

var errManifestVersion = errors.New("registry: unsupported manifest version")

type manifest struct {
	Version  int              `json:"version"`
	Selected int              `json:"selected"`
	Accounts []entity.Account `json:"accounts"`
}

func encodeManifest(s *Snapshot) ([]byte, error) {
	accounts := s.Accounts
	if accounts == nil {
		accounts = []entity.Account{}
	}

	return json.Marshal(manifest{
		Version:  manifestVersion,
		Selected: s.Selected,
		Accounts: accounts,
	})
}

// decodeManifest accepts the versioned object and the older bare array of
// accounts, which carries no selection.
func decodeManifest(data []byte) (manifest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return manifest{}, errors.New("registry: empty manifest")
	}

	if data[0] == '[' {
		var accounts []entity.Account
		if err := json.Unmarshal(data, &accounts); err != nil {
			return manifest{}, err
		}
		return manifest{Version: manifestVersion, Selected: entity.NoSelection, Accounts: accounts}, nil
	}

	m := manifest{Selected: entity.NoSelection}
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest{}, err
	}
	if m.Version != manifestVersion {
		return manifest{}, fmt.Errorf("%w: %d", errManifestVersion, m.Version)
	}

	return m, nil
}
