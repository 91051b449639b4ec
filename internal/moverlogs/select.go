package moverlogs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

type scan struct {
	lists      []*FileInfo
	logs       []*FileInfo
	others     []*FileInfo
	newestList *FileInfo
	newestLog  *FileInfo
	newestAny  *FileInfo
	logByStamp map[string]*FileInfo
}

// scanDir enumerates dir once. A missing directory yields an empty scan.
func scanDir(dir string, naming Naming) (*scan, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return &scan{logByStamp: map[string]*FileInfo{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mover log dir: %w", err)
	}

	s := &scan{logByStamp: make(map[string]*FileInfo)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != listExt && ext != logExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		f := &FileInfo{
			Name:    name,
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		if ext == listExt {
			if _, ok := stampOf(name, naming.ListPrefix); ok {
				s.lists = append(s.lists, f)
				if f.newerThan(s.newestList) {
					s.newestList = f
				}
			}
			continue
		}

		if f.newerThan(s.newestAny) {
			s.newestAny = f
		}
		if stamp, ok := stampOf(name, naming.LogPrefix); ok {
			s.logs = append(s.logs, f)
			if existing := s.logByStamp[stamp]; f.newerThan(existing) {
				s.logByStamp[stamp] = f
			}
			if f.newerThan(s.newestLog) {
				s.newestLog = f
			}
			continue
		}
		s.others = append(s.others, f)
	}
	return s, nil
}

// Select returns the most relevant run: the newest structured list paired
// with the log sharing its timestamp, else the newest prefixed log, else the
// newest .log of any name. It returns nil when there is nothing to parse.
func Select(dir string, naming Naming) (*FileSet, error) {
	s, err := scanDir(dir, naming)
	if err != nil {
		return nil, err
	}

	switch {
	case s.newestList != nil:
		stamp, _ := stampOf(s.newestList.Name, naming.ListPrefix)
		set := &FileSet{List: s.newestList, Stamp: stamp, Kind: naming.classify(s.newestList.Size)}
		if paired, ok := s.logByStamp[stamp]; ok {
			set.Log = paired
		} else {
			set.Log = s.newestLog
		}
		return set, nil
	case s.newestLog != nil:
		stamp, _ := stampOf(s.newestLog.Name, naming.LogPrefix)
		return &FileSet{Log: s.newestLog, Stamp: stamp, Kind: naming.classify(s.newestLog.Size)}, nil
	case s.newestAny != nil:
		return &FileSet{
			Log:   s.newestAny,
			Stamp: strings.TrimSuffix(s.newestAny.Name, filepath.Ext(s.newestAny.Name)),
			Kind:  naming.classify(s.newestAny.Size),
		}, nil
	default:
		return nil, nil
	}
}

// Index lists every run in dir, newest first. Lists and prefixed logs are
// paired by timestamp; unprefixed logs appear only when nothing else exists.
func Index(dir string, naming Naming) ([]FileSet, error) {
	s, err := scanDir(dir, naming)
	if err != nil {
		return nil, err
	}

	byStamp := make(map[string]*FileSet)
	for _, list := range s.lists {
		stamp, _ := stampOf(list.Name, naming.ListPrefix)
		set := byStamp[stamp]
		if set == nil {
			set = &FileSet{Stamp: stamp}
			byStamp[stamp] = set
		}
		if list.newerThan(set.List) {
			set.List = list
		}
	}
	for stamp, log := range s.logByStamp {
		set := byStamp[stamp]
		if set == nil {
			set = &FileSet{Stamp: stamp}
			byStamp[stamp] = set
		}
		set.Log = log
	}

	sets := make([]FileSet, 0, len(byStamp))
	for _, set := range byStamp {
		set.Kind = naming.classify(set.Primary().Size)
		sets = append(sets, *set)
	}
	if len(sets) == 0 {
		for _, f := range s.others {
			sets = append(sets, FileSet{
				Log:   f,
				Stamp: strings.TrimSuffix(f.Name, filepath.Ext(f.Name)),
				Kind:  naming.classify(f.Size),
			})
		}
	}

	slices.SortFunc(sets, func(a, b FileSet) int {
		if c := b.ModTime().Compare(a.ModTime()); c != 0 {
			return c
		}
		return strings.Compare(b.Stamp, a.Stamp)
	})
	return sets, nil
}

// SelectTrueRun returns the newest run classified as a true run, or nil.
func SelectTrueRun(dir string, naming Naming) (*FileSet, error) {
	sets, err := Index(dir, naming)
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if sets[i].Kind == KindTrueRun {
			return &sets[i], nil
		}
	}
	return nil, nil
}
