package steffen_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vremap/internal/steffen"
)

var _ = Describe("Interpolator", func() {
	var in *steffen.Interpolator

	BeforeEach(func() {
		in = &steffen.Interpolator{}
	})

	It("reproduces the input values at the nodes", func() {
		levels := []float64{0, 1, 2.5, 4, 7}
		values := []float64{3, -1, 2, 2, 5}
		dst := make([]float64, len(levels))
		Expect(in.Column(dst, levels, values, levels, 0, false)).To(Succeed())
		for i := range levels {
			Expect(dst[i]).To(BeNumerically("~", values[i], 1e-12))
		}
	})

	It("interpolates linear data exactly", func() {
		levels := []float64{0, 10, 20, 30}
		values := []float64{5, 25, 45, 65}
		outputs := []float64{2.5, 15, 27.5}
		dst := make([]float64, len(outputs))
		Expect(in.Column(dst, levels, values, outputs, 0, false)).To(Succeed())
		Expect(dst[0]).To(BeNumerically("~", 10, 1e-9))
		Expect(dst[1]).To(BeNumerically("~", 35, 1e-9))
		Expect(dst[2]).To(BeNumerically("~", 60, 1e-9))
	})

	It("never overshoots between monotonic nodes", func() {
		levels := []float64{0, 1, 2, 3, 4, 5}
		values := []float64{0, 0, 0.1, 9.9, 10, 10}
		outputs := make([]float64, 0, 101)
		for o := 0.0; o <= 5.0; o += 0.05 {
			outputs = append(outputs, o)
		}
		dst := make([]float64, len(outputs))
		Expect(in.Column(dst, levels, values, outputs, 0, false)).To(Succeed())
		for n, o := range outputs {
			Expect(dst[n]).To(BeNumerically(">=", -1e-12), "at %v", o)
			Expect(dst[n]).To(BeNumerically("<=", 10+1e-12), "at %v", o)
		}
		// The data never decrease, so neither may the interpolant.
		for n := 1; n < len(dst); n++ {
			Expect(dst[n]).To(BeNumerically(">=", dst[n-1]-1e-12))
		}
	})

	It("handles the bracket, node, and extrapolation cases together", func() {
		levels := []float64{0, 100, 500}
		values := []float64{10, 12, 9}
		outputs := []float64{0, 50, 100, 300, 500, 600}
		dst := make([]float64, len(outputs))
		Expect(in.Column(dst, levels, values, outputs, -10, true)).To(Succeed())

		Expect(dst[0]).To(BeNumerically("~", 10, 1e-12))
		Expect(dst[1]).To(BeNumerically(">", 10))
		Expect(dst[1]).To(BeNumerically("<", 12))
		Expect(dst[2]).To(BeNumerically("~", 12, 1e-12))
		Expect(dst[3]).To(BeNumerically(">", 9))
		Expect(dst[3]).To(BeNumerically("<", 12))
		Expect(dst[4]).To(BeNumerically("~", 9, 1e-12))
		Expect(math.IsNaN(dst[5])).To(BeTrue())
	})

	Describe("extrapolation below the first level", func() {
		levels := []float64{10, 20, 30}
		values := []float64{5, 7, 9}

		It("is NaN below the boundary", func() {
			dst := make([]float64, 1)
			Expect(in.Column(dst, levels, values, []float64{2}, 5, false)).To(Succeed())
			Expect(math.IsNaN(dst[0])).To(BeTrue())
		})

		It("is flat above the boundary without the gradient flag", func() {
			dst := make([]float64, 2)
			Expect(in.Column(dst, levels, values, []float64{6, 10}, 5, false)).To(Succeed())
			Expect(dst[0]).To(Equal(5.0))
			Expect(dst[1]).To(Equal(5.0))
		})

		It("follows the first node slope with the gradient flag", func() {
			dst := make([]float64, 1)
			Expect(in.Column(dst, levels, values, []float64{6}, 5, true)).To(Succeed())
			// Linear data: the slope estimate at the first node is exact.
			Expect(dst[0]).To(BeNumerically("~", 5+0.2*(6-10), 1e-12))
		})
	})

	Describe("input validation", func() {
		It("rejects columns with fewer than three levels", func() {
			dst := make([]float64, 1)
			err := in.Column(dst, []float64{0, 1}, []float64{1, 2}, []float64{0.5}, 0, false)
			Expect(err).To(MatchError(steffen.ErrShortColumn))
		})

		It("rejects mismatched slice lengths", func() {
			dst := make([]float64, 1)
			err := in.Column(dst, []float64{0, 1, 2}, []float64{1, 2}, []float64{0.5}, 0, false)
			Expect(err).To(MatchError(steffen.ErrLengthMismatch))

			err = in.Column(dst, []float64{0, 1, 2}, []float64{1, 2, 3}, []float64{0.5, 1.5}, 0, false)
			Expect(err).To(MatchError(steffen.ErrLengthMismatch))
		})

		It("rejects levels that do not increase strictly", func() {
			dst := make([]float64, 1)
			err := in.Column(dst, []float64{0, 1, 1, 2}, []float64{1, 2, 3, 4}, []float64{0.5}, 0, false)
			var mono *steffen.MonotonicityError
			Expect(errors.As(err, &mono)).To(BeTrue())
			Expect(mono.Level).To(Equal(2))
			Expect(mono.Delta).To(Equal(0.0))
		})
	})

	It("reuses scratch space across columns of different sizes", func() {
		big := make([]float64, 137)
		bigVals := make([]float64, 137)
		for i := range big {
			big[i] = float64(i) * 50
			bigVals[i] = 300 - 0.006*big[i]
		}
		dst := make([]float64, 3)
		Expect(in.Column(dst, big, bigVals, []float64{100, 200, 300}, 0, false)).To(Succeed())

		small := []float64{0, 1, 2}
		smallVals := []float64{1, 2, 3}
		Expect(in.Column(dst, small, smallVals, []float64{0.5, 1.5, 2}, 0, false)).To(Succeed())
		Expect(dst[0]).To(BeNumerically("~", 1.5, 1e-12))
		Expect(dst[1]).To(BeNumerically("~", 2.5, 1e-12))
		Expect(dst[2]).To(BeNumerically("~", 3, 1e-12))
	})
})
