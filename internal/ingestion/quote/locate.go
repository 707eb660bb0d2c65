package quote

import "strings"

// Locate finds the approximate position of q inside doc.
//
// Matching is case-insensitive and tolerates up to max(2, len(q)/10) edits.
// Among candidate windows the one with the fewest edits wins; ties go to the
// earliest start. The returned offset counts runes, not bytes. ok is false
// when nothing within tolerance exists.
func Locate(q, doc string) (pos int, ok bool) {
	needle := []rune(strings.ToLower(strings.TrimSpace(q)))
	hay := []rune(strings.ToLower(doc))
	if len(needle) == 0 || len(hay) == 0 {
		return 0, false
	}

	// Fast path for verbatim quotes.
	if idx := indexRunes(hay, needle); idx >= 0 {
		return idx, true
	}

	tol := Tolerance(len(needle))
	m := len(needle)

	// Sellers' variant of the edit distance DP: row 0 is all zeros so a match
	// may start anywhere in doc. start[j] tracks where the best alignment
	// ending at hay[j-1] begins.
	prev := make([]int, len(hay)+1)
	cur := make([]int, len(hay)+1)
	prevStart := make([]int, len(hay)+1)
	curStart := make([]int, len(hay)+1)
	for j := range prev {
		prevStart[j] = j
	}

	for i := 1; i <= m; i++ {
		cur[0] = i
		curStart[0] = 0
		for j := 1; j <= len(hay); j++ {
			cost := 1
			if needle[i-1] == hay[j-1] {
				cost = 0
			}
			best, bestStart := prev[j-1]+cost, prevStart[j-1]
			if d := prev[j] + 1; d < best || (d == best && prevStart[j] < bestStart) {
				best, bestStart = d, prevStart[j]
			}
			if d := cur[j-1] + 1; d < best || (d == best && curStart[j-1] < bestStart) {
				best, bestStart = d, curStart[j-1]
			}
			cur[j] = best
			curStart[j] = bestStart
		}
		prev, cur = cur, prev
		prevStart, curStart = curStart, prevStart
	}

	bestDist, bestPos := tol+1, -1
	for j := 1; j <= len(hay); j++ {
		d := prev[j]
		if d > tol {
			continue
		}
		s := prevStart[j]
		if d < bestDist || (d == bestDist && s < bestPos) {
			bestDist, bestPos = d, s
		}
	}
	if bestPos < 0 {
		return 0, false
	}
	return bestPos, true
}

// Tolerance is the number of edits accepted for a quote of n runes.
func Tolerance(n int) int {
	t := n / 10
	if t < 2 {
		t = 2
	}
	return t
}

func indexRunes(hay, needle []rune) int {
	n := len(needle)
outer:
	for i := 0; i+n <= len(hay); i++ {
		for k := 0; k < n; k++ {
			if hay[i+k] != needle[k] {
				continue outer
			}
		}
		return i
	}
	return -1
}
