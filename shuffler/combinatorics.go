package shuffler

import "github.com/tomato42/fsresck/write"

// combinationsOfIndices returns every size-k subset of {0, ..., n-1},
// each subset sorted ascending, in lexicographic order of the subsets
// themselves.
func combinationsOfIndices(n, k int) [][]int {
	if k <= 0 || k > n {
		return nil
	}
	var out [][]int
	combo := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			cp := make([]int, k)
			copy(cp, combo)
			out = append(out, cp)
			return
		}
		for i := start; i < n; i++ {
			combo[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
	return out
}

// permutationsOfIndices returns every ordering of idx (treated as a set
// of index values, not positions), including idx's own order.
func permutationsOfIndices(idx []int) [][]int {
	n := len(idx)
	if n == 0 {
		return [][]int{{}}
	}
	used := make([]bool, n)
	cur := make([]int, 0, n)
	var out [][]int
	var rec func()
	rec = func() {
		if len(cur) == n {
			cp := make([]int, n)
			copy(cp, cur)
			out = append(out, cp)
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, idx[i])
			rec()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	rec()
	return out
}

// selectByIndex returns the writes in window at the given indices, in
// the order the indices are given.
func selectByIndex(window []write.Write, idx []int) []write.Write {
	out := make([]write.Write, len(idx))
	for i, j := range idx {
		out[i] = window[j]
	}
	return out
}

