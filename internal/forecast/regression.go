package forecast

// Regression is an ordinary least-squares fit of y against x = 0, 1, 2, ...
type Regression struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// LinearRegression fits values against their index. Fewer than two points give a
// zero fit. A perfectly flat series has R² of 1.
func LinearRegression(values []float64) Regression {
	n := float64(len(values))
	if n < 2 {
		if n == 1 {
			return Regression{Intercept: values[0]}
		}
		return Regression{}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return Regression{Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i, y := range values {
		predicted := slope*float64(i) + intercept
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - meanY) * (y - meanY)
	}

	reg := Regression{Slope: slope, Intercept: intercept, RSquared: 1}
	if ssTot != 0 {
		reg.RSquared = 1 - ssRes/ssTot
	}
	return reg
}
