package dataset

import (
	"fmt"
	"sort"
)

// Suffixes given to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// OuterJoin returns the full outer join of left and right on key. The result
// has one row per matching pair, plus unmatched rows of either side with nulls
// on the other. Rows are grouped by key in lexicographic order, and keep their
// original order within a key.
//
// A side with no rows and no key column is treated as empty.
func OuterJoin(left, right *Table, key string) (*Table, error) {
	leftIdx, err := keyIndex(left, key, "left")
	if err != nil {
		return nil, err
	}
	rightIdx, err := keyIndex(right, key, "right")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(leftIdx)+len(rightIdx))
	for k := range leftIdx {
		keys = append(keys, k)
	}
	for k := range rightIdx {
		if _, ok := leftIdx[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	leftCols, rightCols := joinColumns(left, right, key)
	out := NewTable(key)
	for _, c := range leftCols {
		out = withColumn(out, c.out)
	}
	for _, c := range rightCols {
		out = withColumn(out, c.out)
	}

	emit := func(k string, l, r int) {
		row := make(map[string]any, len(out.columns))
		row[key] = k
		for _, c := range leftCols {
			if l >= 0 {
				row[c.out] = left.Value(l, c.in)
			}
		}
		for _, c := range rightCols {
			if r >= 0 {
				row[c.out] = right.Value(r, c.in)
			}
		}
		out.AppendRow(row)
	}

	for _, k := range keys {
		ls, rs := leftIdx[k], rightIdx[k]
		switch {
		case len(ls) > 0 && len(rs) > 0:
			for _, l := range ls {
				for _, r := range rs {
					emit(k, l, r)
				}
			}
		case len(ls) > 0:
			for _, l := range ls {
				emit(k, l, -1)
			}
		default:
			for _, r := range rs {
				emit(k, -1, r)
			}
		}
	}
	return out, nil
}

type columnMapping struct {
	in  string
	out string
}

// joinColumns lists the non-key columns of each side with their output names.
func joinColumns(left, right *Table, key string) (l, r []columnMapping) {
	shared := make(map[string]bool)
	for _, c := range left.Columns() {
		if c != key && right.HasColumn(c) {
			shared[c] = true
		}
	}
	for _, c := range left.Columns() {
		if c == key {
			continue
		}
		out := c
		if shared[c] {
			out = c + LeftSuffix
		}
		l = append(l, columnMapping{in: c, out: out})
	}
	for _, c := range right.Columns() {
		if c == key {
			continue
		}
		out := c
		if shared[c] {
			out = c + RightSuffix
		}
		r = append(r, columnMapping{in: c, out: out})
	}
	return l, r
}

func withColumn(t *Table, name string) *Table {
	if !t.HasColumn(name) {
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, name)
		t.data = append(t.data, make([]any, t.rows))
	}
	return t
}

func keyIndex(t *Table, key, side string) (map[string][]int, error) {
	idx := make(map[string][]int)
	if t.Len() == 0 {
		return idx, nil
	}
	col, ok := t.Column(key)
	if !ok {
		return nil, fmt.Errorf("dataset: %s table has no %q column", side, key)
	}
	for i, v := range col {
		s, ok := v.(string)
		if !ok {
			return nil, &MalformedPayloadError{Key: key, Reason: fmt.Sprintf("%s row %d holds %T, want string", side, i, v)}
		}
		idx[s] = append(idx[s], i)
	}
	return idx, nil
}
