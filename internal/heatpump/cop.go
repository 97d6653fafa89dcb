package heatpump

import "math"

const (
	kelvinOffset = 273.15
	// Auxiliary resistance heat engages below this capacity ratio.
	auxThreshold = 0.75
)

// capacityRatio is the output capacity relative to nameplate; zero outside
// the log curve's domain.
func (p Params) capacityRatio(tempK float64) float64 {
	if tempK+p.B <= 0 {
		return 0
	}
	return p.A*math.Log(tempK+p.B) + p.C
}

// baseCOP is piecewise linear above T3_K and degrades with the capacity
// ratio below it.
func (p Params) baseCOP(tempK, cr float64) float64 {
	switch {
	case tempK > p.T2K:
		return ((p.COP1-p.COP2)/(p.T1K-p.T2K))*tempK + (p.COP2*p.T1K-p.COP1*p.T2K)/(p.T1K-p.T2K)
	case tempK > p.T3K:
		return ((p.COP2-p.COP3)/(p.T2K-p.T3K))*tempK + (p.COP3*p.T2K-p.COP2*p.T3K)/(p.T2K-p.T3K)
	default:
		return (cr / p.CR3) * p.COP3
	}
}

// point evaluates one model (no blending) at tempC degrees Celsius.
func (p Params) point(tempC float64) Point {
	tempK := tempC + kelvinOffset
	cr := p.capacityRatio(tempK)
	eaux := math.Max(auxThreshold-cr, 0)
	if cr == 0 {
		return Point{COP: 1, CapacityRatio: 0, AuxFraction: eaux}
	}
	cop := p.baseCOP(tempK, cr)
	return Point{COP: blend(cr, cop, eaux), CapacityRatio: cr, AuxFraction: eaux}
}

// blend combines the heat pump and unity-COP auxiliary heat harmonically,
// floored at pure resistance heat.
func blend(cr, cop, eaux float64) float64 {
	den := cr/cop + eaux
	if den <= 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 1
	}
	h := (cr + eaux) / den
	if math.IsNaN(h) || h < 1 {
		return 1
	}
	return h
}

// Curve returns the unblended cop_base and cr_base series of params for
// temperatures in degrees Celsius.
func Curve(temps []float64, p Params) (cop, cr []float64) {
	cop = make([]float64, len(temps))
	cr = make([]float64, len(temps))
	for i, t := range temps {
		tempK := t + kelvinOffset
		cr[i] = p.capacityRatio(tempK)
		cop[i] = p.baseCOP(tempK, cr[i])
	}
	return cop, cr
}

// Evaluate returns the operating point of model m at tempC. The future
// model performs at least as well as the advanced one at every temperature.
func (t Table) Evaluate(tempC float64, m Model) (Point, error) {
	p, err := t.Lookup(m)
	if err != nil {
		return Point{}, err
	}
	pt := p.point(tempC)
	if m != ModelFuture {
		return pt, nil
	}
	adv, err := t.Lookup(ModelAdvPerf)
	if err != nil {
		return Point{}, err
	}
	if alt := adv.point(tempC); alt.COP > pt.COP {
		return alt, nil
	}
	return pt, nil
}

// COP maps a temperature series (degrees Celsius) to blended COP values,
// one per input in the same order.
func (t Table) COP(temps []float64, m Model) ([]float64, error) {
	p, err := t.Lookup(m)
	if err != nil {
		return nil, err
	}
	var adv *Params
	if m == ModelFuture {
		a, err := t.Lookup(ModelAdvPerf)
		if err != nil {
			return nil, err
		}
		adv = &a
	}

	out := make([]float64, len(temps))
	for i, temp := range temps {
		out[i] = p.point(temp).COP
		if adv != nil {
			out[i] = math.Max(out[i], adv.point(temp).COP)
		}
	}
	return out, nil
}

// ComputeCOP evaluates temps against the built-in parameter table.
func ComputeCOP(temps []float64, m Model) ([]float64, error) {
	return builtin.COP(temps, m)
}

var builtin = DefaultTable()
