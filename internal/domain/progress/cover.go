package progress

// MinimumCover greedily picks rows until every useful feature present in at
// least one row is covered. It returns row indices in pick order. A row
// covers a feature when its count is positive.
func MinimumCover(m *Model, rows [][]float64) []int {
	remaining := append([]bool(nil), m.Useful...)
	picked := make([]bool, len(rows))
	var cover []int

	for {
		best, bestCount := -1, 0
		for i, r := range rows {
			if picked[i] {
				continue
			}
			c := 0
			for j, need := range remaining {
				if need && at(r, j) > 0 {
					c++
				}
			}
			if c > bestCount {
				best, bestCount = i, c
			}
		}
		if best < 0 {
			return cover
		}
		picked[best] = true
		cover = append(cover, best)
		for j := range remaining {
			if at(rows[best], j) > 0 {
				remaining[j] = false
			}
		}
	}
}
