package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultInclude matches OpenITI text files (0626YaqutHamawi.MucjamBuldan.Shamela0023735-ara1
// with an optional .completed/.mARkdown/.inProgress extension) and plain .txt files.
var DefaultInclude = regexp.MustCompile(`^\d{4}[A-Za-z]+\.[A-Za-z0-9]+\.[^.]+-[a-z]{3}\d+(\.(completed|mARkdown|inProgress))?$|\.txt$`)

// Options controls document discovery
type Options struct {
	Recursive bool
	Include   *regexp.Regexp // nil uses DefaultInclude
}

// Discover returns the sorted paths of the text files in folder.
// Hidden files and directories are skipped.
func Discover(folder string, opts Options) ([]string, error) {
	include := opts.Include
	if include == nil {
		include = DefaultInclude
	}

	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover %s: not a directory", folder)
	}

	var paths []string
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == folder {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if include.MatchString(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", folder, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Subdirs returns the sorted names of the non-hidden directories directly inside root.
func Subdirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
