package dsp

import "math"

// radix2Plan is an in-place radix-2 Cooley-Tukey FFT with its bit-reversal
// permutation and twiddle factors computed once for a fixed size.
type radix2Plan struct {
	n       int
	swaps   [][2]int
	cos     []float64
	sin     []float64
	re, im  []float64
	outSize int
}

func newRadix2Plan(n int) *radix2Plan {
	p := &radix2Plan{
		n:       n,
		cos:     make([]float64, n/2),
		sin:     make([]float64, n/2),
		re:      make([]float64, n),
		im:      make([]float64, n),
		outSize: n/2 + 1,
	}

	// Bit-reversal permutation
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for j&bit != 0 {
			j ^= bit
			bit >>= 1
		}
		j ^= bit
		if i < j {
			p.swaps = append(p.swaps, [2]int{i, j})
		}
	}

	for k := range p.cos {
		angle := -2.0 * math.Pi * float64(k) / float64(n)
		p.cos[k] = math.Cos(angle)
		p.sin[k] = math.Sin(angle)
	}
	return p
}

// execute transforms the real input seq into dst[:n/2+1].
func (p *radix2Plan) execute(dst []complex128, seq []float64) {
	re, im := p.re, p.im
	copy(re, seq)
	for i := range im {
		im[i] = 0
	}

	for _, s := range p.swaps {
		re[s[0]], re[s[1]] = re[s[1]], re[s[0]]
	}

	// Butterfly operations
	for size := 2; size <= p.n; size <<= 1 {
		half := size >> 1
		stride := p.n / size
		for i := 0; i < p.n; i += size {
			for k := 0; k < half; k++ {
				wr := p.cos[k*stride]
				wi := p.sin[k*stride]
				a := i + k
				b := a + half
				tr := wr*re[b] - wi*im[b]
				ti := wr*im[b] + wi*re[b]
				re[b] = re[a] - tr
				im[b] = im[a] - ti
				re[a] += tr
				im[a] += ti
			}
		}
	}

	for k := 0; k < p.outSize; k++ {
		dst[k] = complex(re[k], im[k])
	}
}
