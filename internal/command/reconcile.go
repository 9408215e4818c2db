package command

import (
	"context"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
)

// reconcile decides, after a committed split of an annotated group, which
// side keeps the annotation. The kept side stays in the original group.
//
//   - Neither or only the remainder touches an annotation: the carved side
//     stays alone and unannotated in the new group.
//   - Only the carved side touches one: the two sides swap groups.
//   - Both do: an intersection walk from the remainder collects everything
//     reachable through alternating annotation and page partitions. If it
//     reaches the carved side the two are still one region and both stay.
//     Otherwise the carved side's walk moves to the new group, which
//     becomes a region of the same type.
func (c *DeleteEdge) reconcile(ctx context.Context) {
	env := c.env
	g, g2 := c.group, c.newGroup
	keep, carved := c.owner, c.carved
	region, annotated := env.Index.FindByGroup(g)
	if !annotated {
		return
	}
	logger := ctxlog.FromContext(ctx)

	members := append(g.Partitions(), carved)
	splitRegion := false
	hitKeep := touchesAny(keep, members)
	hitCarved := touchesAny(carved, members)

	switch {
	case !hitCarved:
		logger.Debug("Carved side leaves the region.", "partition", carved.ID())
	case !hitKeep:
		c.move(keep, g2)
		c.move(carved, g)
		logger.Debug("Region moved to the carved side.", "partition", carved.ID())
	default:
		side := walk(keep, members, nil)
		if side[carved] {
			c.move(carved, g)
			if err := env.Model.RemoveGroup(g2); err != nil {
				logger.Warn("Could not drop empty group.", "group", g2.ID(), "error", err)
			}
			logger.Debug("Split sides still connected through annotations, kept as one region.")
			break
		}
		other := walk(carved, members, side)
		for _, p := range members {
			if other[p] && p != carved {
				c.move(p, g2)
			}
		}
		splitRegion = true
		logger.Debug("Region split in two.", "partitions", len(other))
	}

	hadOwner := region.HasSource(keep)
	var kept, moved []*graph.Partition
	for _, s := range region.Sources {
		switch s.Group() {
		case g:
			kept = append(kept, s)
		case g2:
			moved = append(moved, s)
		}
	}
	if hadOwner {
		switch carved.Group() {
		case g:
			kept = append(kept, carved)
		case g2:
			moved = append(moved, carved)
		}
	}
	region.Sources = kept

	env.RefreshHull(g)
	if g2.Len() > 0 {
		env.RefreshHull(g2)
	}
	if splitRegion {
		var first *graph.Partition
		if len(moved) > 0 {
			first, moved = moved[0], moved[1:]
		}
		env.Index.AddRegion(g2, first, region.Type)
		for _, s := range moved {
			env.Index.AddRegion(g2, s, region.Type)
		}
		c.newRegion, _ = env.Index.FindByGroup(g2)
	}
}

func (c *DeleteEdge) move(p *graph.Partition, to *graph.Group) {
	if p.Group() == to {
		return
	}
	if err := c.env.Model.Attach(to, c.env.Model.Detach(p)); err != nil {
		ctxlog.FromContext(c.env.Context()).Error("Partition move failed.", "partition", p.ID(), "group", to.ID(), "error", err)
	}
}

func touchesAny(p *graph.Partition, members []*graph.Partition) bool {
	for _, q := range members {
		if touches(p, q) {
			return true
		}
	}
	return false
}

// walk collects everything reachable from start through intersecting
// partitions of alternating kinds. Partitions in skip are never visited.
func walk(start *graph.Partition, members []*graph.Partition, skip map[*graph.Partition]bool) map[*graph.Partition]bool {
	seen := map[*graph.Partition]bool{start: true}
	queue := []*graph.Partition{start}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, q := range members {
			if seen[q] || skip[q] || !touches(p, q) {
				continue
			}
			seen[q] = true
			queue = append(queue, q)
		}
	}
	return seen
}
