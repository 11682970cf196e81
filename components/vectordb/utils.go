package vectordb

type float interface {
	~float32 | ~float64
}

func convert[T, U float](v []T) []U {
	if v == nil {
		return nil
	}
	ret := make([]U, len(v))
	for i, f := range v {
		ret[i] = U(f)
	}
	return ret
}

// Float32s narrows an embedding for engines storing float32 vectors
func Float32s(v []float64) []float32 {
	return convert[float64, float32](v)
}

// Float64s widens a stored vector back to an embedding
func Float64s(v []float32) []float64 {
	return convert[float32, float64](v)
}
