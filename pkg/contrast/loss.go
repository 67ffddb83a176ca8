package contrast

import "math"

// InfoNCE computes the mean softmax cross-entropy over logits rows with the
// positive at index 0 of every row, i.e. the contrastive objective for a
// scored batch. Uses the log-sum-exp trick for numerical stability.
func InfoNCE(logits [][]float32) float64 {
	if len(logits) == 0 {
		return 0
	}

	total := 0.0
	for _, row := range logits {
		maxLogit := float64(row[0])
		for _, v := range row[1:] {
			if float64(v) > maxLogit {
				maxLogit = float64(v)
			}
		}

		sumExp := 0.0
		for _, v := range row {
			sumExp += math.Exp(float64(v) - maxLogit)
		}
		logSumExp := maxLogit + math.Log(sumExp)

		// Cross-entropy against target index 0: -log(softmax(row[0]))
		total += logSumExp - float64(row[0])
	}

	return total / float64(len(logits))
}
