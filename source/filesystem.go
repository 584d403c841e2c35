package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/veridoc/pipeline/telemetry"
)

// maxWalkDepth bounds a recursive listing (spec.md §4.9 FILESYSTEM
// connector): folders_to_process is walked to this depth when
// process_sub_directories is true, else depth 1.
const maxWalkDepth = 20

// ListOptions configures one FilesystemConnector.ListFilesFromSource call
// (spec.md §4.9).
type ListOptions struct {
	FoldersToProcess      []string
	ProcessSubDirectories bool
	ExtensionSets         []FileExtensionSet
	MaxFiles              int // 0 means unlimited
	UseFileHistory        bool
	OrganizationID        string
	WorkflowID            string
	MessagingChannel      string
}

// ProviderUUIDResolver looks up a stable upstream file id when the
// underlying storage exposes one (e.g. Google Drive), else returns "".
// Filesystem sources typically have none; APIConnector does not use a
// resolver and leaves ProviderFileUUID empty.
type ProviderUUIDResolver interface {
	ResolveProviderUUID(path string, info os.FileInfo) string
}

// FilesystemConnector implements the FILESYSTEM sub-path of §4.9: a
// pattern-matched directory walk with the three dedup guards composed in
// listing order (seen-set, file-history, in-flight). The walk does not hash
// file content: FileHash is left empty, so the file-history guard keys on
// the provider UUID only and the in-flight query matches on provider UUID
// and path.
type FilesystemConnector struct {
	History   HistoryStore
	InFlight  InFlightStore
	Publisher telemetry.Publisher
	UUIDs     ProviderUUIDResolver // optional
}

// ListFilesFromSource walks every configured folder and returns the
// accepted FileHash records keyed by file path, plus the total accepted
// count (spec.md §4.9 "Public").
func (c *FilesystemConnector) ListFilesFromSource(ctx context.Context, opts ListOptions) (map[string]FileHash, int, error) {
	patterns := ResolvePatterns(opts.ExtensionSets)
	seen := newSeenGuard()
	hist := historyGuard{store: c.History, enabled: opts.UseFileHistory}
	flight := inFlightGuard{store: c.InFlight}

	result := map[string]FileHash{}
	fileNumber := 0

	folders := append([]string(nil), opts.FoldersToProcess...)
	sort.Strings(folders)

	maxDepth := 1
	if opts.ProcessSubDirectories {
		maxDepth = maxWalkDepth
	}

	for _, root := range folders {
		if opts.MaxFiles > 0 && len(result) >= opts.MaxFiles {
			break
		}
		if err := c.walk(ctx, root, root, 1, maxDepth, patterns, opts, seen, hist, flight, &fileNumber, result); err != nil {
			return nil, 0, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return result, len(result), nil
}

func (c *FilesystemConnector) walk(
	ctx context.Context,
	root, dir string,
	depth, maxDepth int,
	patterns []string,
	opts ListOptions,
	seen *seenGuard,
	hist historyGuard,
	flight inFlightGuard,
	fileNumber *int,
	result map[string]FileHash,
) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if opts.MaxFiles > 0 && len(result) >= opts.MaxFiles {
			return nil
		}
		path := filepath.Join(dir, entry.Name())

		if isDirectory(entry, path) {
			if depth < maxDepth {
				if err := c.walk(ctx, root, path, depth+1, maxDepth, patterns, opts, seen, hist, flight, fileNumber, result); err != nil {
					return err
				}
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()

		if !MatchesAny(patterns, name) || !IsSupportedFormat(name) {
			continue
		}

		if !seen.Accept(path, name) {
			c.logDuplicate(ctx, opts, path, "within-listing duplicate path or name")
			continue
		}

		fh := FileHash{
			FilePath:             path,
			FileName:             name,
			FileSize:             info.Size(),
			SourceConnectionType: SourceConnectionFilesystem,
		}
		if c.UUIDs != nil {
			fh.ProviderFileUUID = c.UUIDs.ResolveProviderUUID(path, info)
		}
		cacheKey := fh.ProviderFileUUID

		skip, err := hist.ShouldSkip(ctx, opts.WorkflowID, cacheKey, path)
		if err != nil {
			return err
		}
		if skip {
			fh.IsExecuted = true
		}

		inFlight, err := flight.ShouldSkip(ctx, InFlightQuery{
			OrganizationID:   opts.OrganizationID,
			WorkflowID:       opts.WorkflowID,
			FileHash:         fh.FileHash,
			ProviderFileUUID: fh.ProviderFileUUID,
			FilePath:         path,
		})
		if err != nil {
			return err
		}
		if inFlight {
			c.logDuplicate(ctx, opts, path, "duplicate detected in current run")
			continue
		}

		*fileNumber++
		fh.FileNumber = *fileNumber
		result[path] = fh
	}
	return nil
}

// isDirectory cascades through the detection strategies named in spec.md
// §4.9 step 1: os.DirEntry.IsDir() already answers the metadata and
// listed-in-dirs questions for a real filesystem walk, so only the
// trailing-slash and zero-size fallbacks remain meaningful here.
func isDirectory(entry os.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if len(path) > 0 && path[len(path)-1] == '/' {
		return true
	}
	info, err := entry.Info()
	if err == nil && info.Size() == 0 && entry.Type()&os.ModeSymlink == 0 {
		return true
	}
	return false
}

func (c *FilesystemConnector) logDuplicate(ctx context.Context, opts ListOptions, path, reason string) {
	if c.Publisher == nil || opts.MessagingChannel == "" {
		return
	}
	_ = c.Publisher.PublishLog(ctx, opts.MessagingChannel, telemetry.LogEvent{
		Stage:          telemetry.StageRun,
		Message:        fmt.Sprintf("duplicate detected in current run: %s (%s)", path, reason),
		Level:          "warn",
		OrganizationID: opts.OrganizationID,
	})
}
