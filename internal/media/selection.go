package media

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/fortemezzo/cbird/internal/comparator"
	"github.com/fortemezzo/cbird/internal/value"
	"github.com/fortemezzo/cbird/internal/workers"
)

// Attribute keys written by selection operations.
const (
	AttrFilter = "filter"
	AttrGroup  = "group"
)

// Values evaluates prop for every item of g in parallel. Properties that
// read the file use the I/O worker count.
func Values(ctx context.Context, g Group, prop Property) ([]value.Value, error) {
	out := make([]value.Value, len(g))

	limit := workers.ForCPU(0)
	if prop.NeedsFile() {
		limit = workers.ForIO(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i := range g {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = prop.Value(g[i])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Filter keeps the items of g whose prop value matches cmp, or does not
// match when without is set. Kept items are annotated with the filter.
func Filter(ctx context.Context, g Group, prop Property, cmp *comparator.Comparator, without bool) (Group, error) {
	vals, err := Values(ctx, g, prop)
	if err != nil {
		return nil, err
	}

	note := prop.String() + " " + cmp.String()
	out := make(Group, 0, len(g))
	for i, m := range g {
		if cmp.Matches(vals[i]) != without {
			m.SetAttribute(AttrFilter, note)
			out = append(out, m)
		}
	}
	return out, nil
}

// FilterList applies Filter to every group and drops groups left empty.
func FilterList(ctx context.Context, list GroupList, prop Property, cmp *comparator.Comparator, without bool) (GroupList, error) {
	out := make(GroupList, 0, len(list))
	for _, g := range list {
		filtered, err := Filter(ctx, g, prop, cmp, without)
		if err != nil {
			return nil, err
		}
		if len(filtered) > 0 {
			out = append(out, filtered)
		}
	}
	return out, nil
}

// SortGroup returns g stably sorted by prop.
func SortGroup(ctx context.Context, g Group, prop Property, reverse bool) (Group, error) {
	vals, err := Values(ctx, g, prop)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(g))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := vals[idx[a]], vals[idx[b]]
		if reverse {
			return value.Less(vb, va)
		}
		return value.Less(va, vb)
	})

	out := make(Group, len(g))
	for i, j := range idx {
		out[i] = g[j]
	}
	return out, nil
}

// GroupBy partitions g by the string form of prop. Groups appear in order
// of their first member.
func GroupBy(ctx context.Context, g Group, prop Property) (GroupList, error) {
	vals, err := Values(ctx, g, prop)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var out GroupList
	for i, m := range g {
		key := vals[i].String()
		m.SetAttribute(AttrGroup, prop.String()+" == "+key)

		j, ok := index[key]
		if !ok {
			j = len(out)
			index[key] = j
			out = append(out, nil)
		}
		out[j] = append(out[j], m)
	}
	return out, nil
}

// First reduces every group to its first item.
func First(list GroupList) GroupList {
	out := make(GroupList, 0, len(list))
	for _, g := range list {
		if len(g) > 0 {
			out = append(out, Group{g[0]})
		}
	}
	return out
}

// Chop removes the first item of every group, typically the needle.
func Chop(list GroupList) GroupList {
	out := make(GroupList, 0, len(list))
	for _, g := range list {
		if len(g) > 0 {
			out = append(out, g[1:])
		}
	}
	return out
}

// FirstSibling keeps only the first item from each parent directory.
func FirstSibling(g Group) Group {
	seen := make(map[string]bool)
	out := make(Group, 0, len(g))
	for _, m := range g {
		p := m.ParentPath()
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, m)
	}
	return out
}
