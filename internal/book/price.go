package book

import "math"

// DoubleToPrice and PriceToDouble are the two documented conversions
// between floating-point display prices and the integer tick prices the
// matching engine operates on. The engine itself never touches float64.
func DoubleToPrice(x float64) int64 {
	return int64(math.Round(x * 100))
}

func PriceToDouble(p int64) float64 {
	return float64(p) / 100
}
