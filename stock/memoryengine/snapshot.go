package memoryengine

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// loadSnapshot reads the state from path. A missing file yields an empty state.
func loadSnapshot(path string) (state, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newState(), nil
	}
	if err != nil {
		return state{}, err
	}

	st := newState()
	if len(data) == 0 {
		return st, nil
	}

	if err = json.Unmarshal(data, &st); err != nil {
		return state{}, err
	}

	st.normalize()

	return st, nil
}

// saveSnapshot writes the state to a temporary file next to path and renames it over path,
// so readers never observe a half written snapshot.
func saveSnapshot(path string, st state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err = tmp.Write(data); err != nil {
		return cleanup(err)
	}

	if err = tmp.Sync(); err != nil {
		return cleanup(err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}
