package coverage

// bucketTable is a precomputed lookup from a raw hit count to its bucket
// class, mirroring AFL's count_class_lookup8: index of the most significant
// set bit, with 0 mapping to -1. Built once at init instead of branching on
// every byte of every trace comparison.
var bucketTable [256]int8

func init() {
	bucketTable[0] = -1
	for v := 1; v < 256; v++ {
		b := 0
		for x := v >> 1; x != 0; x >>= 1 {
			b++
		}
		bucketTable[v] = int8(b)
	}
}

// Bucket returns the 0-based index of v's most significant set bit, or -1
// for v == 0. It partitions [0,255] into the nine canonical AFL hit-count
// classes used for novelty comparison instead of raw counts.
func Bucket(v byte) int {
	return int(bucketTable[v])
}
