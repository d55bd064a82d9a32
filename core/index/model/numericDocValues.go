package model

// index/NumericDocValues.java

/*
Per-document numeric values, iterated in increasing doc ID order.
Norms are exposed through this interface.
*/
type NumericDocValues interface {
	// Advances to exactly target and returns whether target has a
	// value. target must not be lower than the previous target.
	AdvanceExact(target int) (bool, error)
	// Returns the value of the current document.
	LongValue() (int64, error)
}

/*
NumericDocValues backed by a dense slice, one value per document.
Documents whose value is zero are reported as having no value.
*/
type SliceNumericDocValues struct {
	values []int64
	doc    int
}

func NewSliceNumericDocValues(values []int64) *SliceNumericDocValues {
	return &SliceNumericDocValues{values: values, doc: -1}
}

func (dv *SliceNumericDocValues) AdvanceExact(target int) (bool, error) {
	assert2(target > dv.doc || (target == dv.doc && target >= 0),
		"targets must be non-decreasing: %v after %v", target, dv.doc)
	dv.doc = target
	return target < len(dv.values) && dv.values[target] != 0, nil
}

func (dv *SliceNumericDocValues) LongValue() (int64, error) {
	return dv.values[dv.doc], nil
}
