// Package importer loads issues from a beads JSONL export into the tracker,
// keeping a durable identifier map so repeated imports are idempotent.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/syncer"
	"github.com/steveyegge/lb/internal/types"
)

// sourceIssue is one line of a beads JSONL export. Unknown fields are
// ignored.
type sourceIssue struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	IssueType    string     `json:"issue_type"`
	Assignee     string     `json:"assignee"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	Dependencies []struct {
		IssueID     string `json:"issue_id"`
		DependsOnID string `json:"depends_on_id"`
		Type        string `json:"type"`
	} `json:"dependencies"`
}

// mapEntry is one line of import-map.jsonl, pairing a source identifier with
// the identifier it received here.
type mapEntry struct {
	SourceID string `json:"bd_id"`
	LocalID  string `json:"linear_id"`
}

// Options controls one import run.
type Options struct {
	Source        string
	DryRun        bool
	IncludeClosed bool
	Since         time.Time
	Force         bool
}

// Result summarizes one import run.
type Result struct {
	Created     int
	Skipped     int
	Deps        int
	WouldCreate int
}

// Importer drives the import. In remote mode issues are created inline via
// the sync executor; in local-only mode they receive LOCAL-<n> identifiers.
type Importer struct {
	cfg   *config.Config
	store *store.Store
	sync  *syncer.Syncer
	log   *log.Logger
}

// New builds an Importer.
func New(cfg *config.Config, st *store.Store, sync *syncer.Syncer, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Importer{cfg: cfg, store: st, sync: sync, log: logger}
}

// Run imports every qualifying issue from the source file, then recreates the
// dependency edges between imported issues with remapped identifiers.
func (im *Importer) Run(ctx context.Context, opts Options) (*Result, error) {
	issues, err := readSource(opts.Source)
	if err != nil {
		return nil, err
	}

	idMap, err := readMap(im.cfg.ImportMapPath())
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var newEntries []mapEntry

	for _, src := range issues {
		if src.Title == "" || src.ID == "" {
			result.Skipped++
			continue
		}
		if !opts.IncludeClosed && src.Status == "closed" {
			result.Skipped++
			continue
		}
		if !opts.Since.IsZero() && src.UpdatedAt.Before(opts.Since) {
			result.Skipped++
			continue
		}
		if _, seen := idMap[src.ID]; seen && !opts.Force {
			result.Skipped++
			continue
		}

		if opts.DryRun {
			result.WouldCreate++
			continue
		}

		localID, err := im.importOne(ctx, src)
		if err != nil {
			im.log.Printf("importing %s: %v", src.ID, err)
			result.Skipped++
			continue
		}
		idMap[src.ID] = localID
		newEntries = append(newEntries, mapEntry{SourceID: src.ID, LocalID: localID})
		result.Created++
	}

	if opts.DryRun {
		return result, nil
	}

	// Second pass: edges between imported issues, endpoints remapped.
	for _, src := range issues {
		srcLocal, ok := idMap[src.ID]
		if !ok {
			continue
		}
		for _, dep := range src.Dependencies {
			depType, err := types.ParseDependencyType(dep.Type)
			if err != nil {
				continue
			}
			target, ok := idMap[dep.DependsOnID]
			if !ok {
				continue
			}
			edge := &types.Dependency{
				IssueID:     srcLocal,
				DependsOnID: target,
				Type:        depType,
				CreatedBy:   "import",
			}
			if err := im.store.UpsertDep(edge); err != nil {
				im.log.Printf("importing edge %s -> %s: %v", srcLocal, target, err)
				continue
			}
			if im.sync.Remote() {
				payload := types.RelationPayload{IssueID: srcLocal, DependsOnID: target, Type: depType}
				if err := im.sync.CreateRelationRemote(ctx, &payload); err != nil {
					im.log.Printf("pushing edge %s -> %s: %v", srcLocal, target, err)
				}
			}
			result.Deps++
		}
	}

	if err := appendMap(im.cfg.ImportMapPath(), newEntries); err != nil {
		return nil, err
	}
	return result, nil
}

func (im *Importer) importOne(ctx context.Context, src *sourceIssue) (string, error) {
	status, err := types.ParseStatus(src.Status)
	if err != nil {
		status = types.StatusOpen
	}
	issueType := types.IssueType(src.IssueType)
	if !issueType.IsValid() {
		issueType = ""
	}
	priority := src.Priority
	if priority < 0 || priority > 4 {
		priority = 2
	}

	if im.sync.Remote() {
		payload := types.CreatePayload{
			Title:       src.Title,
			Description: src.Description,
			Status:      status,
			Priority:    priority,
			IssueType:   issueType,
			Assignee:    src.Assignee,
		}
		created, err := im.sync.CreateRemote(ctx, &payload)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	}

	id, err := im.store.NextLocalID()
	if err != nil {
		return "", err
	}
	issue := &types.Issue{
		ID:          id,
		Title:       src.Title,
		Description: src.Description,
		Status:      status,
		Priority:    priority,
		IssueType:   issueType,
		Assignee:    src.Assignee,
		CreatedAt:   src.CreatedAt,
		UpdatedAt:   src.UpdatedAt,
		ClosedAt:    src.ClosedAt,
	}
	issue.SetDefaults()
	if issue.Status == types.StatusClosed && issue.ClosedAt == nil {
		now := time.Now().UTC()
		issue.ClosedAt = &now
	}
	if err := im.store.UpsertIssue(issue); err != nil {
		return "", err
	}
	return id, nil
}

func readSource(path string) ([]*sourceIssue, error) {
	f, err := os.Open(path) // #nosec G304 - user-supplied import path
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", types.ErrValidation, path, err)
	}
	defer f.Close()

	var issues []*sourceIssue
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var src sourceIssue
		if err := json.Unmarshal(line, &src); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", types.ErrValidation, path, lineNum, err)
		}
		issues = append(issues, &src)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return issues, nil
}

func readMap(path string) (map[string]string, error) {
	idMap := map[string]string{}
	f, err := os.Open(path) // #nosec G304 - repo-local state file
	if os.IsNotExist(err) {
		return idMap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry mapEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		idMap[entry.SourceID] = entry.LocalID
	}
	return idMap, scanner.Err()
}

func appendMap(path string, entries []mapEntry) error {
	if len(entries) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
