package distributor

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/errors"
	jsoniter "github.com/json-iterator/go"
)

// DefaultStatePath is where the distributor state is kept unless configured
// otherwise.
const DefaultStatePath = "distributor-state.json"

// State is the persisted distributor information.
type State struct {
	ContractAddr string `json:"contractAddr,omitempty"`
}

// Address returns the contract address, if any is stored.
func (s State) Address() (common.Address, bool, error) {
	if s.ContractAddr == "" {
		return common.Address{}, false, nil
	}
	if !common.IsHexAddress(s.ContractAddr) {
		return common.Address{}, false, errors.Wrapf(errors.ErrState, "invalid contract address %q", s.ContractAddr)
	}
	return common.HexToAddress(s.ContractAddr), true, nil
}

// StateStore keeps the distributor state in a JSON file.
type StateStore struct {
	path string
}

// NewStateStore returns a store using the file at given path. The file does
// not have to exist.
func NewStateStore(path string) *StateStore {
	if path == "" {
		path = DefaultStatePath
	}
	return &StateStore{path: path}
}

// Path returns the location of the state file.
func (s *StateStore) Path() string {
	return s.path
}

// Load returns the stored state. A missing or empty file is an empty state.
func (s *StateStore) Load() (State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, errors.Wrapf(errors.ErrState, "read %s: %s", s.path, err)
	}
	var st State
	if len(raw) == 0 {
		return st, nil
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &st); err != nil {
		return State{}, errors.Wrapf(errors.ErrState, "decode %s: %s", s.path, err)
	}
	return st, nil
}

// Save writes the state. The file is replaced atomically.
func (s *StateStore) Save(st State) error {
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(st)
	if err != nil {
		return errors.Wrapf(errors.ErrState, "encode: %s", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(errors.ErrState, "create %s: %s", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(errors.ErrState, "write %s: %s", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(errors.ErrState, "rename %s: %s", tmp, err)
	}
	return nil
}
