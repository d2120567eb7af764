// Package inventory counts the artifacts present in a download directory.
package inventory

import (
	"path/filepath"
	"sort"
	"strings"
	"uzdata-harvester/internal/pipeline"

	"github.com/spf13/afero"
)

type Artifact struct {
	Name string
	Size int64
	// PathID is empty when the artifact carries no marker.
	PathID string
}

type Report struct {
	Dir       string
	Artifacts []Artifact
}

func (r Report) Total() int {
	return len(r.Artifacts)
}

func (r Report) Normalized() int {
	count := 0
	for _, artifact := range r.Artifacts {
		if artifact.PathID != "" {
			count++
		}
	}
	return count
}

// Missing returns the names of artifacts that have no marker.
func (r Report) Missing() []string {
	var names []string
	for _, artifact := range r.Artifacts {
		if artifact.PathID == "" {
			names = append(names, artifact.Name)
		}
	}
	return names
}

// Duplicates returns the path ids that are carried by more than one artifact.
func (r Report) Duplicates() map[string][]string {
	byID := map[string][]string{}
	for _, artifact := range r.Artifacts {
		if artifact.PathID == "" {
			continue
		}
		byID[artifact.PathID] = append(byID[artifact.PathID], artifact.Name)
	}
	for id, names := range byID {
		if len(names) < 2 {
			delete(byID, id)
		}
	}
	return byID
}

// Count lists the *.json files directly inside dir, sorted by name.
func Count(fs afero.Fs, dir string) (Report, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return Report{}, err
	}

	report := Report{Dir: dir}
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		data, err := afero.ReadFile(fs, filepath.Join(dir, info.Name()))
		if err != nil {
			return Report{}, err
		}
		id, _ := pipeline.Marker(data)
		report.Artifacts = append(report.Artifacts, Artifact{
			Name:   info.Name(),
			Size:   info.Size(),
			PathID: id,
		})
	}
	sort.Slice(report.Artifacts, func(i, j int) bool {
		return report.Artifacts[i].Name < report.Artifacts[j].Name
	})
	return report, nil
}
