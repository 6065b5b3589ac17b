package sequence

// Levenshtein returns the edit distance between a and b with unit costs for
// insertion, deletion and substitution. Memory is two rows of the shorter input.
func Levenshtein(a, b []byte) int {
	long, short := a, b
	if len(short) > len(long) {
		long, short = short, long
	}
	if len(short) == 0 {
		return len(long)
	}

	prev := make([]int, len(short)+1)
	cur := make([]int, len(short)+1)
	for i := range prev {
		prev[i] = i
	}

	for y := 0; y < len(long); y++ {
		cur[0] = y + 1
		for x := 0; x < len(short); x++ {
			sub := prev[x]
			if long[y] != short[x] {
				sub++
			}
			cur[x+1] = min(prev[x+1]+1, cur[x]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(short)]
}
