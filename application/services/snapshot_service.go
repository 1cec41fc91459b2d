package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// Snapshot is the portable export document. Unknown fields encountered on
// import are ignored and absent optional fields default at read time.
type Snapshot struct {
	SchemaVersion int                    `json:"schemaVersion"`
	ExportedAt    time.Time              `json:"exportedAt"`
	Source        string                 `json:"source,omitempty"`
	TotalMemories int                    `json:"totalMemories"`
	Memories      []SnapshotMemory       `json:"memories"`
	Relationships []SnapshotRelationship `json:"relationships"`
}

// SnapshotMemory is one exported memory. CreatedAt stays a string so a
// malformed value can be reported per entry instead of failing the parse.
type SnapshotMemory struct {
	Hash      string                 `json:"hash,omitempty"`
	Content   string                 `json:"content"`
	Tags      []string               `json:"tags"`
	CreatedAt string                 `json:"createdAt,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SnapshotRelationship is one exported edge, addressed by endpoint hashes.
type SnapshotRelationship struct {
	FromHash         string                 `json:"fromHash"`
	ToHash           string                 `json:"toHash"`
	RelationshipType string                 `json:"relationshipType"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ImportOptions steer an import run.
type ImportOptions struct {
	// SkipDuplicates counts entries whose hash already lives in the store as
	// skipped instead of reporting them as errors.
	SkipDuplicates bool

	// PreserveTimestamps uses each entry's createdAt instead of now.
	PreserveTimestamps bool

	// DryRun parses, validates and probes for duplicates without persisting
	// anything.
	DryRun bool
}

// ImportResult reports an import run. Errors are soft per-entry failures;
// the run itself succeeded.
type ImportResult struct {
	Imported             int      `json:"imported"`
	Skipped              int      `json:"skipped"`
	RelationshipsCreated int      `json:"relationshipsCreated"`
	RelationshipsSkipped int      `json:"relationshipsSkipped"`
	Errors               []string `json:"errors"`
	DryRun               bool     `json:"dryRun,omitempty"`
}

// errDryRun forces the unit of work to roll back a validation-only import.
var errDryRun = errors.New("dry run rollback")

// SnapshotService implements snapshot export and import. It drives the store
// exclusively through the same ports the other services use.
type SnapshotService struct {
	uow    ports.UnitOfWork
	info   ports.StoreInfo
	source string
	logger *zap.Logger
}

// NewSnapshotService creates a snapshot service. The source string is stamped
// into exported snapshots.
func NewSnapshotService(uow ports.UnitOfWork, info ports.StoreInfo, source string, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{
		uow:    uow,
		info:   info,
		source: source,
		logger: logger.Named("snapshot-service"),
	}
}

// Export serializes the filtered store. Inclusion is filter-only, never
// ranked: memories ordered oldest first, and only edges with both endpoints
// inside the exported set are carried.
func (s *SnapshotService) Export(ctx context.Context, filter ports.ExportFilter) (*Snapshot, error) {
	schemaVersion, err := s.info.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		SchemaVersion: schemaVersion,
		ExportedAt:    time.Now().UTC(),
		Source:        s.source,
		Memories:      []SnapshotMemory{},
		Relationships: []SnapshotRelationship{},
	}

	err = s.uow.Execute(ctx, func(stores ports.Stores) error {
		all, err := stores.Memories().ListAll(ctx)
		if err != nil {
			return err
		}

		selected := make([]*entities.Memory, 0, len(all))
		for _, m := range all {
			if len(filter.Tags) > 0 && !m.TagSet().Intersects(filter.Tags) {
				continue
			}
			if filter.StartDate != nil && m.CreatedAt().Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && m.CreatedAt().After(*filter.EndDate) {
				continue
			}
			selected = append(selected, m)
		}
		sort.Slice(selected, func(i, j int) bool {
			if !selected[i].CreatedAt().Equal(selected[j].CreatedAt()) {
				return selected[i].CreatedAt().Before(selected[j].CreatedAt())
			}
			return selected[i].ID() < selected[j].ID()
		})
		if filter.Limit > 0 && len(selected) > filter.Limit {
			selected = selected[:filter.Limit]
		}

		hashesByID := make(map[int64]string, len(selected))
		for _, m := range selected {
			hashesByID[m.ID()] = m.Hash().String()
			tags := m.Tags()
			if tags == nil {
				tags = []string{}
			}
			snapshot.Memories = append(snapshot.Memories, SnapshotMemory{
				Hash:      m.Hash().String(),
				Content:   m.Content(),
				Tags:      tags,
				CreatedAt: m.CreatedAt().UTC().Format(time.RFC3339Nano),
				Metadata:  m.Metadata(),
			})
		}

		edges, err := stores.Relationships().ListAll(ctx)
		if err != nil {
			return err
		}
		for _, rel := range edges {
			fromHash, okFrom := hashesByID[rel.FromID()]
			toHash, okTo := hashesByID[rel.ToID()]
			if !okFrom || !okTo {
				continue
			}
			snapshot.Relationships = append(snapshot.Relationships, SnapshotRelationship{
				FromHash:         fromHash,
				ToHash:           toHash,
				RelationshipType: string(rel.Type()),
				Metadata:         rel.Metadata(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot.TotalMemories = len(snapshot.Memories)
	s.logger.Info("Snapshot exported",
		zap.Int("memories", snapshot.TotalMemories),
		zap.Int("relationships", len(snapshot.Relationships)))
	return snapshot, nil
}

// Import reads a snapshot into the store. The whole batch runs in one
// transaction; per-entry problems become soft errors in the result while a
// storage failure rolls everything back. A payload that cannot be parsed at
// all fails with a format error before anything is written.
func (s *SnapshotService) Import(ctx context.Context, payload []byte, opts ImportOptions) (*ImportResult, error) {
	snapshot, err := parseSnapshot(payload)
	if err != nil {
		return nil, err
	}

	if live, verr := s.info.SchemaVersion(ctx); verr == nil &&
		snapshot.SchemaVersion != 0 && snapshot.SchemaVersion != live {
		s.logger.Info("Snapshot schema version differs from live schema",
			zap.Int("snapshotVersion", snapshot.SchemaVersion),
			zap.Int("liveVersion", live))
	}

	result := &ImportResult{Errors: []string{}, DryRun: opts.DryRun}
	execErr := s.uow.Execute(ctx, func(stores ports.Stores) error {
		if err := s.importMemories(ctx, stores, snapshot, opts, result); err != nil {
			return err
		}
		if err := s.importRelationships(ctx, stores, snapshot, result); err != nil {
			return err
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if execErr != nil && !errors.Is(execErr, errDryRun) {
		return nil, execErr
	}

	s.logger.Info("Snapshot imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("relationshipsCreated", result.RelationshipsCreated),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("dryRun", result.DryRun))
	return result, nil
}

func (s *SnapshotService) importMemories(
	ctx context.Context,
	stores ports.Stores,
	snapshot *Snapshot,
	opts ImportOptions,
	result *ImportResult,
) error {
	for i, entry := range snapshot.Memories {
		m, err := entities.NewMemory(entry.Content, entry.Tags)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("memory %d: %s", i, errMessage(err)))
			continue
		}

		if entry.Hash != "" {
			declared, err := valueobjects.ParseContentHash(entry.Hash)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("memory %d: invalid hash %q", i, entry.Hash))
				continue
			}
			if !declared.Equals(m.Hash()) {
				result.Errors = append(result.Errors, fmt.Sprintf("memory %d: hash does not match content", i))
				continue
			}
		}

		if opts.PreserveTimestamps && entry.CreatedAt != "" {
			t, err := time.Parse(time.RFC3339Nano, entry.CreatedAt)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("memory %d: malformed createdAt %q", i, entry.CreatedAt))
				continue
			}
			m.SetCreatedAt(t.UTC())
		}

		if len(entry.Metadata) > 0 {
			m.SetMetadata(entry.Metadata)
		}

		existing, err := stores.Memories().GetByHash(ctx, m.Hash())
		if err != nil {
			return err
		}
		if existing != nil {
			if opts.SkipDuplicates {
				result.Skipped++
			} else {
				result.Errors = append(result.Errors,
					fmt.Sprintf("memory %d: duplicate of live memory %s", i, m.Hash().String()))
			}
			continue
		}

		if err := stores.Memories().Insert(ctx, m); err != nil {
			if pkgerrors.IsConflict(err) {
				if opts.SkipDuplicates {
					result.Skipped++
				} else {
					result.Errors = append(result.Errors,
						fmt.Sprintf("memory %d: duplicate of live memory %s", i, m.Hash().String()))
				}
				continue
			}
			return err
		}
		result.Imported++
	}
	return nil
}

func (s *SnapshotService) importRelationships(
	ctx context.Context,
	stores ports.Stores,
	snapshot *Snapshot,
	result *ImportResult,
) error {
	specs := make([]resolvedEdge, 0, len(snapshot.Relationships))
	for i, entry := range snapshot.Relationships {
		from, err := valueobjects.ParseContentHash(entry.FromHash)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %d: invalid fromHash", i))
			continue
		}
		to, err := valueobjects.ParseContentHash(entry.ToHash)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %d: invalid toHash", i))
			continue
		}
		relType := strings.TrimSpace(entry.RelationshipType)
		if relType == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %d: relationship type cannot be empty", i))
			continue
		}
		specs = append(specs, resolvedEdge{from: from, to: to, relType: relType, metadata: entry.Metadata})
	}

	created, skipped, err := linkEdges(ctx, stores, specs)
	if err != nil {
		return err
	}
	result.RelationshipsCreated = created
	result.RelationshipsSkipped = skipped
	return nil
}

// parseSnapshot rejects anything that is not a JSON object with the snapshot
// shape. Entry-level semantic problems are left for the import loop.
func parseSnapshot(payload []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, pkgerrors.NewFormatError("snapshot payload is empty", nil)
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(payload, &shape); err != nil {
		return nil, pkgerrors.NewFormatError("snapshot is not a JSON object", err)
	}
	if shape == nil {
		return nil, pkgerrors.NewFormatError("snapshot is null", nil)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, pkgerrors.NewFormatError("snapshot fields have the wrong shape", err)
	}
	return &snapshot, nil
}

func errMessage(err error) string {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		return appErr.Message
	}
	return err.Error()
}
