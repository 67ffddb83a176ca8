package contrast

// PairBatch assembles the 2N embedding layout from two index-aligned view
// streams: view A of sample k lands at index k, view B at index k+N. Returns
// ErrInvalidBatch when the streams differ in length or hold fewer than two
// samples, and ErrDimensionMismatch when any vector disagrees on dimension.
func PairBatch(viewA, viewB [][]float32) ([][]float32, error) {
	n := len(viewA)
	if n != len(viewB) || n < 2 {
		return nil, ErrInvalidBatch
	}

	dim := len(viewA[0])
	batch := make([][]float32, 0, 2*n)
	for _, v := range viewA {
		if len(v) != dim {
			return nil, ErrDimensionMismatch
		}
		batch = append(batch, v)
	}
	for _, v := range viewB {
		if len(v) != dim {
			return nil, ErrDimensionMismatch
		}
		batch = append(batch, v)
	}
	return batch, nil
}
