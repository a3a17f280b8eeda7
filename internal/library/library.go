// Package library enumerates episode files below the library root.
//
// Shows are directories directly under the root; seasons are "Season NN"
// subdirectories. A selector names either a whole show ("Friends") or a
// single season ("Friends/Season 03").
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrShowNotFound reports a selector that names no directory in the library.
var ErrShowNotFound = errors.New("show not found in library")

const seasonPrefix = "Season "

// Selector identifies a show or a single season of it.
type Selector struct {
	Show   string
	Season string // empty selects every season
}

// ParseSelector parses "Show" or "Show/Season NN".
func ParseSelector(value string) (Selector, error) {
	value = strings.Trim(strings.TrimSpace(filepath.ToSlash(value)), "/")
	if value == "" {
		return Selector{}, errors.New("empty show name")
	}
	if idx := strings.LastIndex(value, "/"+seasonPrefix); idx > 0 {
		season := value[idx+1:]
		if isSeasonDir(season) {
			return Selector{Show: value[:idx], Season: season}, nil
		}
	}
	return Selector{Show: value}, nil
}

func (s Selector) String() string {
	if s.Season == "" {
		return s.Show
	}
	return s.Show + "/" + s.Season
}

// Episodes returns the sorted absolute paths of every episode file the
// selector covers. For a single season every file below the season directory
// is included; for a whole show only files directly inside "Season *"
// directories are.
func Episodes(root string, sel Selector) ([]string, error) {
	showDir := filepath.Join(root, filepath.FromSlash(sel.Show))
	if sel.Season != "" {
		seasonDir := filepath.Join(showDir, sel.Season)
		if err := requireDir(seasonDir, sel); err != nil {
			return nil, err
		}
		return walkFiles(seasonDir)
	}

	if err := requireDir(showDir, sel); err != nil {
		return nil, err
	}
	seasons, err := os.ReadDir(showDir)
	if err != nil {
		return nil, fmt.Errorf("read show directory: %w", err)
	}
	var files []string
	for _, season := range seasons {
		if !season.IsDir() || !strings.HasPrefix(season.Name(), seasonPrefix) {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(showDir, season.Name()))
		if err != nil {
			return nil, fmt.Errorf("read season directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			files = append(files, filepath.Join(showDir, season.Name(), entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Shows lists the show directories directly under root.
func Shows(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	var shows []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			shows = append(shows, entry.Name())
		}
	}
	sort.Strings(shows)
	return shows, nil
}

func walkFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func requireDir(path string, sel Selector) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrShowNotFound, sel)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrShowNotFound, sel)
	}
	return nil
}

func isSeasonDir(name string) bool {
	if !strings.HasPrefix(name, seasonPrefix) {
		return false
	}
	number := strings.TrimPrefix(name, seasonPrefix)
	if number == "" {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
