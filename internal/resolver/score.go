package resolver

// match finds the best approximate occurrence of pattern anywhere in text
// (semi-global edit distance). It returns the number of edits and the rune
// offset in text where that occurrence begins. Ties on edits prefer the
// earliest start.
func match(pattern, text []rune) (edits int, start int) {
	m := len(pattern)
	n := len(text)
	if m == 0 {
		return 0, 0
	}

	prev := make([]int, n+1)
	prevStart := make([]int, n+1)
	cur := make([]int, n+1)
	curStart := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = 0
		prevStart[j] = j
	}

	for i := 1; i <= m; i++ {
		cur[0] = i
		curStart[0] = 0
		for j := 1; j <= n; j++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			best, bestStart := prev[j-1]+cost, prevStart[j-1]
			if v := prev[j] + 1; v < best || (v == best && prevStart[j] < bestStart) {
				best, bestStart = v, prevStart[j]
			}
			if v := cur[j-1] + 1; v < best || (v == best && curStart[j-1] < bestStart) {
				best, bestStart = v, curStart[j-1]
			}
			cur[j] = best
			curStart[j] = bestStart
		}
		prev, cur = cur, prev
		prevStart, curStart = curStart, prevStart
	}

	edits, start = prev[0], prevStart[0]
	for j := 1; j <= n; j++ {
		if prev[j] < edits || (prev[j] == edits && prevStart[j] < start) {
			edits, start = prev[j], prevStart[j]
		}
	}
	return edits, start
}

// score is 0 for a perfect match at the start of text and grows with edits
// and with how far into text the match begins.
func score(pattern, text []rune, distance int) float64 {
	edits, start := match(pattern, text)
	accuracy := float64(edits) / float64(len(pattern))
	if distance <= 0 {
		if start > 0 {
			return accuracy + 1
		}
		return accuracy
	}
	return accuracy + float64(start)/float64(distance)
}
