package config

import (
	"errors"
	"path/filepath"

	"github.com/stlauncher/stsync/internal/utils"
)

var ErrDataDirNotFound = errors.New("no data directory found, pass one explicitly")

// dataDirCandidates are the places a launcher install keeps the default user's data
func dataDirCandidates() []string {
	return []string{
		filepath.Join("SillyTavern", "data", "default-user"),
		filepath.Join("data", "default-user"),
		filepath.Join(home, "SillyTavern", "data", "default-user"),
		filepath.Join(home, "SillytavernLauncher", "SillyTavern", "data", "default-user"),
	}
}

// DetectDataDir returns the first conventional data directory that exists.
// A server needs the directory itself; a client only needs its parent, since a first
// sync creates it. With no match the client falls back to the first candidate whose parent exists.
func DetectDataDir(forServer bool) (string, error) {
	candidates := dataDirCandidates()

	for _, candidate := range candidates {
		if utils.DirExists(candidate) {
			return utils.ResolvePath(candidate)
		}
	}

	if !forServer {
		for _, candidate := range candidates {
			if utils.DirExists(filepath.Dir(candidate)) {
				return utils.ResolvePath(candidate)
			}
		}
	}

	return "", ErrDataDirNotFound
}
