package pipeline

import (
	"context"
	"fmt"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
)

// PartPoints is the point snapshot of one partition.
type PartPoints struct {
	Partition graph.PartitionID
	Points    []geom.Point
}

// HullInput is everything a hull job reads.
type HullInput struct {
	Group     graph.GroupID
	Parts     []PartPoints
	Tightness int
}

// HullResult holds the recomputed member hulls and their union.
type HullResult struct {
	Group graph.GroupID
	Parts map[graph.PartitionID]geom.Hull
	Union geom.Hull
}

// SnapshotHull copies the points of every member of g.
func SnapshotHull(g *graph.Group, tightness int) HullInput {
	in := HullInput{Group: g.ID(), Tightness: tightness}
	for _, p := range g.Partitions() {
		in.Parts = append(in.Parts, PartPoints{Partition: p.ID(), Points: p.Points()})
	}
	return in
}

// RunHull computes the concave hull of every member, then their union. Any
// geometry error fails the whole job; the caller keeps the old hulls.
func RunHull(ctx context.Context, in HullInput) (HullResult, error) {
	res := HullResult{Group: in.Group, Parts: make(map[graph.PartitionID]geom.Hull, len(in.Parts))}
	hulls := make([]geom.Hull, 0, len(in.Parts))
	for _, part := range in.Parts {
		if err := ctx.Err(); err != nil {
			return HullResult{}, err
		}
		if len(part.Points) == 0 {
			continue
		}
		h, err := geom.ConcaveHull(part.Points, in.Tightness)
		if err != nil {
			return HullResult{}, fmt.Errorf("partition %d: %w", part.Partition, err)
		}
		res.Parts[part.Partition] = h
		hulls = append(hulls, h)
	}
	if err := ctx.Err(); err != nil {
		return HullResult{}, err
	}
	u, err := geom.UnionOfHulls(hulls)
	if err != nil {
		return HullResult{}, fmt.Errorf("group %d: %w", in.Group, err)
	}
	res.Union = u
	ctxlog.FromContext(ctx).Debug("Hull job computed.", "group", in.Group, "partitions", len(res.Parts))
	return res, nil
}

// SplitInput is the topology of a partition right after an edge removal.
type SplitInput struct {
	Topology graph.Topology
	Removed  graph.EdgeID
}

// SplitResult is either "no split" or the vertices to carve out.
type SplitResult struct {
	Partition graph.PartitionID
	Split     bool
	Carve     []graph.VertexID
}

// RunSplit checks whether the partition is still connected. If not, it
// returns the smallest component, ties going to the component with the
// lowest vertex id.
func RunSplit(ctx context.Context, in SplitInput) (SplitResult, error) {
	res := SplitResult{Partition: in.Topology.Partition}
	if err := in.Topology.Validate(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	comps := in.Topology.Components()
	if len(comps) <= 1 {
		ctxlog.FromContext(ctx).Debug("Edge removal left partition connected.",
			"partition", in.Topology.Partition, "edge", in.Removed)
		return res, nil
	}
	res.Split = true
	res.Carve = graph.Smallest(comps)
	ctxlog.FromContext(ctx).Debug("Edge removal split partition.",
		"partition", in.Topology.Partition,
		"edge", in.Removed,
		"components", len(comps),
		"carved", len(res.Carve),
	)
	return res, nil
}
