package main

import (
	"fmt"
	"strings"

	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

// collectDepSpecs merges the repeatable relation flags and the legacy
// comma-separated --deps form into one validated list. Everything is checked
// before any cache or queue mutation.
func collectDepSpecs(blocks, blockedBy, related, discovered []string, legacy string) ([]types.DepSpec, error) {
	var specs []types.DepSpec

	add := func(depType types.DependencyType, inverse bool, ids []string) error {
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if !types.IsIdentifier(id) {
				return fmt.Errorf("%w: malformed issue identifier %q", types.ErrValidation, id)
			}
			specs = append(specs, types.DepSpec{Type: depType, OtherID: id, Inverse: inverse})
		}
		return nil
	}

	if err := add(types.DepBlocks, false, blocks); err != nil {
		return nil, err
	}
	if err := add(types.DepBlocks, true, blockedBy); err != nil {
		return nil, err
	}
	if err := add(types.DepRelated, false, related); err != nil {
		return nil, err
	}
	if err := add(types.DepDiscoveredFrom, false, discovered); err != nil {
		return nil, err
	}

	for _, pair := range strings.Split(legacy, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kind, id, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%w: --deps entries must look like type:ID (got %q)", types.ErrValidation, pair)
		}
		depType, err := types.ParseDependencyType(kind)
		if err != nil {
			return nil, err
		}
		if err := add(depType, false, []string{id}); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// applyDepSpecs writes the local dependency edges for a new or updated issue.
// Inverse specs flip the edge so the other issue is the source.
func applyDepSpecs(st *store.Store, id, parent string, specs []types.DepSpec, createdBy string) ([]*types.Dependency, error) {
	var edges []*types.Dependency
	if parent != "" {
		edges = append(edges, &types.Dependency{
			IssueID:     id,
			DependsOnID: parent,
			Type:        types.DepParentChild,
			CreatedBy:   createdBy,
		})
	}
	for _, spec := range specs {
		edge := &types.Dependency{
			IssueID:     id,
			DependsOnID: spec.OtherID,
			Type:        spec.Type,
			CreatedBy:   createdBy,
		}
		if spec.Inverse {
			edge.IssueID, edge.DependsOnID = spec.OtherID, id
		}
		edges = append(edges, edge)
	}
	for _, edge := range edges {
		if err := st.UpsertDep(edge); err != nil {
			return nil, err
		}
	}
	return edges, nil
}
