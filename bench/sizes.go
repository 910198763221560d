package bench

// ElemSize is the size of a collective element in bytes.
const ElemSize = 4

// CollectiveSizes gets the element counts of a collective
// benchmark for a range of byte sizes.
//
// The counts start at minBytes/ElemSize (at least 1) and
// double until they no longer fit in maxBytes.
func CollectiveSizes(minBytes, maxBytes int) []int {
	elems := minBytes / ElemSize
	if elems < 1 {
		elems = 1
	}
	var res []int
	for ; elems*ElemSize <= maxBytes; elems *= 2 {
		res = append(res, elems)
	}
	return res
}

// PointSizes gets the byte sizes of a point-to-point
// benchmark.
// Sizes double from minBytes, and a size of 0 is followed
// by 1.
func PointSizes(minBytes, maxBytes int) []int {
	var res []int
	for size := minBytes; size <= maxBytes; {
		res = append(res, size)
		if size == 0 {
			size = 1
		} else {
			size *= 2
		}
	}
	return res
}
