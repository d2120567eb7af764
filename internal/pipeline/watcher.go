package pipeline

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"
	"uzdata-harvester/internal/components/chrono"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Snapshot is the set of entry names in a directory at one point in time.
type Snapshot map[string]struct{}

func (s Snapshot) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the sorted entry names.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watcher detects files that appear in a download directory.
type Watcher struct {
	fs                 afero.Fs
	clock              chrono.API
	pollInterval       time.Duration
	inProgressSuffixes []string
}

func NewWatcher(fs afero.Fs, clock chrono.API, cfg Config) Watcher {
	return Watcher{
		fs:                 fs,
		clock:              clock,
		pollInterval:       cfg.PollInterval,
		inProgressSuffixes: cfg.InProgressSuffixes,
	}
}

func (w Watcher) Snapshot(dir string) (Snapshot, error) {
	infos, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return nil, err
	}
	snapshot := make(Snapshot, len(infos))
	for _, info := range infos {
		snapshot[info.Name()] = struct{}{}
	}
	return snapshot, nil
}

func (w Watcher) inProgress(name string) bool {
	for _, suffix := range w.inProgressSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// newest returns the most recently modified entry in dir that is not part of
// baseline, ties go to the lexicographically greatest name.
func (w Watcher) newest(dir string, baseline Snapshot) (os.FileInfo, error) {
	infos, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return nil, err
	}

	var newest os.FileInfo
	for _, info := range infos {
		if info.IsDir() || baseline.Has(info.Name()) || w.inProgress(info.Name()) {
			continue
		}
		if newest == nil {
			newest = info
			continue
		}
		switch {
		case info.ModTime().After(newest.ModTime()):
			newest = info
		case info.ModTime().Equal(newest.ModTime()) && info.Name() > newest.Name():
			newest = info
		}
	}
	return newest, nil
}

// AwaitNewEntry polls dir until an entry that is not in baseline appears and
// returns its name. It returns a *DownloadTimeoutError if nothing appears
// within timeout.
func (w Watcher) AwaitNewEntry(ctx context.Context, dir string, baseline Snapshot, timeout time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "Watcher.AwaitNewEntry")
	defer span.End()

	result, err := chrono.WaitUntil(
		ctx,
		w.clock,
		w.pollInterval,
		timeout,
		func(ctx context.Context) (string, bool, error) {
			info, err := w.newest(dir, baseline)
			if err != nil || info == nil {
				return "", false, err
			}
			return info.Name(), true, nil
		},
	)
	span.SetAttributes(attribute.Int("attempts", result.Attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to poll download directory")
		return "", err
	}
	if result.TimedOut {
		err := &DownloadTimeoutError{Dir: dir, Timeout: timeout}
		span.RecordError(err)
		span.SetStatus(codes.Error, "download timed out")
		return "", err
	}

	span.SetAttributes(attribute.String("file", result.Value))
	return result.Value, nil
}
