package main

func compareAndIncrement(a, b int) int {
	if a > b {
		c := a + 1
		if c > b {
			return 1
		} else {
			return -1
		}
	}
	return 42
}

func abs(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func contradiction(x int) int {
	if x > 10 {
		if x < 5 {
			return 1
		}
		return 2
	}
	return 3
}

func divide(a, b int) int {
	return a / b
}

func sumTo(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func both(p, q bool) bool {
	if p && q {
		return true
	}
	return false
}

func shift(x uint32, n uint64) uint32 {
	return x << n
}

func double(x int) int {
	return x * 2
}

func twice(x int) int {
	return double(double(x))
}

func fail(x int) int {
	if x == 7 {
		panic("seven")
	}
	return x
}

func half(f float64) float64 {
	if f > 1.5 {
		return f / 2
	}
	return f
}

func length(xs []int) int {
	return len(xs)
}
