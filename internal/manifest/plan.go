package manifest

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// SyncPlan is the work needed to make a local directory match a remote manifest
type SyncPlan struct {
	ToDownload   []Entry
	ToDelete     mapset.Set[string]
	DownloadSize int64
}

// Diff compares the local manifest against the remote one.
// A remote entry is downloaded when it is missing locally or its mtime is strictly newer;
// equal mtimes count as synced. Local paths unknown to the remote are deleted.
func Diff(local, remote Manifest) *SyncPlan {
	plan := &SyncPlan{
		ToDownload: []Entry{},
		ToDelete:   mapset.NewThreadUnsafeSet[string](),
	}

	localFiles := local.ByPath()
	remotePaths := remote.Paths()

	for _, remoteFile := range remote {
		localFile, exists := localFiles[remoteFile.Path]
		if !exists || Newer(remoteFile.Mtime, localFile.Mtime) {
			plan.ToDownload = append(plan.ToDownload, remoteFile)
			plan.DownloadSize += remoteFile.Size
		}
	}

	for localPath := range localFiles {
		if !remotePaths.Contains(localPath) {
			plan.ToDelete.Add(localPath)
		}
	}

	sort.Slice(plan.ToDownload, func(i, j int) bool {
		return plan.ToDownload[i].Path < plan.ToDownload[j].Path
	})

	return plan
}

// Empty reports whether the plan has nothing to do
func (p *SyncPlan) Empty() bool {
	return len(p.ToDownload) == 0 && p.ToDelete.Cardinality() == 0
}

// DeletePaths returns the paths to delete in a stable order
func (p *SyncPlan) DeletePaths() []string {
	paths := p.ToDelete.ToSlice()
	sort.Strings(paths)
	return paths
}
