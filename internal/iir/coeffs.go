package iir

// FixedPointFracBits is the number of fractional bits in the Q2.30
// fixed-point representation used for every coefficient and for Gain.
// A value of 1.0 is encoded as 1<<FixedPointFracBits.
const FixedPointFracBits = 30

// FixedPointOne is the fixed-point encoding of 1.0, i.e. unity gain.
const FixedPointOne int32 = 1 << FixedPointFracBits

// Section is one second-order biquad stage in Direct-Form-II-Transposed,
// with coefficients in Q2.30 fixed point and a per-section output shift
// used to re-normalize after the multiply-accumulate.
type Section struct {
	B0, B1, B2 int32
	A1, A2     int32
	Shift      uint
}

// Response is one cascade of biquad Sections plus the overall gain applied
// after the last section, both in Q2.30 fixed point.
type Response struct {
	Sections []Section
	Gain     int32
}

// Coefficients is the flat, per-configuration coefficient table of
// spec.md §4.4: an assign_response table mapping channel index to response
// index (or -1 for bypass) plus the responses themselves.
type Coefficients struct {
	AssignResponse []int32
	Responses      []Response
}
