package lib

// GCD compute the greatest common divisor of a and b using Euclid's
// algorithm. Pre: a != 0 && b != 0. For faster results, ensure a > b.
func GCD(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM compute the least common multiple of a and b. Pre: a != 0 && b != 0.
// For faster results, ensure a > b.
func LCM(a, b int64) int64 {
	return (a / GCD(a, b)) * b
}
