package app

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"gobrick/adapters/wire"
	"gobrick/domain/brick"
	"gobrick/internal/energy"
	"gobrick/internal/errors"
)

// BrickQuery holds the producer query parameters that select a brick.
// Optional values are nil when absent.
type BrickQuery struct {
	Quality      string     `json:"quality,omitempty"`
	Dims         brick.Dims `json:"dims"`
	Phase01      *float64   `json:"phase01,omitempty"`
	SigmaSector  *int       `json:"sigmaSector,omitempty"`
	SplitEnabled *bool      `json:"splitEnabled,omitempty"`
	SplitFrac    *float64   `json:"splitFrac,omitempty"`
	DutyFR       *float64   `json:"dutyFR,omitempty"`
	Q            *float64   `json:"q,omitempty"`
	GammaGeo     *float64   `json:"gammaGeo,omitempty"`
	GammaVdB     *float64   `json:"gammaVdB,omitempty"`
	AmpBase      *float64   `json:"ampBase,omitempty"`
	Zeta         *float64   `json:"zeta,omitempty"`

	ObserverPressureFactor *float64 `json:"observerPressureFactor,omitempty"`
	ObserverRapidityCap    *float64 `json:"observerRapidityCap,omitempty"`
	ObserverTypeITolerance *float64 `json:"observerTypeITolerance,omitempty"`

	Format wire.Format `json:"format"`
}

// ParseBrickQuery validates producer query parameters. format defaults to binary.
func ParseBrickQuery(values url.Values) (*BrickQuery, error) {
	p := queryParser{values: values}
	q := &BrickQuery{
		Quality:      strings.ToLower(strings.TrimSpace(values.Get("quality"))),
		Phase01:      p.floatParam("phase01"),
		SigmaSector:  p.intParam("sigmaSector"),
		SplitEnabled: p.boolParam("splitEnabled"),
		SplitFrac:    p.floatParam("splitFrac"),
		DutyFR:       p.floatParam("dutyFR"),
		Q:            p.floatParam("q"),
		GammaGeo:     p.floatParam("gammaGeo"),
		GammaVdB:     p.floatParam("gammaVdB"),
		AmpBase:      p.floatParam("ampBase"),
		Zeta:         p.floatParam("zeta"),

		ObserverPressureFactor: p.floatParam("observerPressureFactor"),
		ObserverRapidityCap:    p.floatParam("observerRapidityCap"),
		ObserverTypeITolerance: p.floatParam("observerTypeITolerance"),

		Format: wire.FormatBinary,
	}
	if p.err != nil {
		return nil, p.err
	}

	if raw := values.Get("dims"); raw != "" {
		dims, err := ParseDims(raw)
		if err != nil {
			return nil, err
		}
		q.Dims = dims
	}
	if raw := values.Get("format"); raw != "" {
		format, err := wire.ParseFormat(raw)
		if err != nil {
			return nil, errors.InvalidInput(err.Error())
		}
		q.Format = format
	}

	// the producer treats phase as periodic
	if q.Phase01 != nil {
		wrapped := math.Mod(*q.Phase01, 1)
		if wrapped < 0 {
			wrapped++
		}
		q.Phase01 = &wrapped
	}
	if err := q.validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *BrickQuery) validate() error {
	unit := map[string]*float64{"splitFrac": q.SplitFrac, "dutyFR": q.DutyFR}
	for name, v := range unit {
		if v != nil && (*v < 0 || *v > 1) {
			return errors.InvalidInput(fmt.Sprintf("%s must be in [0,1], got %v", name, *v))
		}
	}
	if q.SigmaSector != nil && *q.SigmaSector < 1 {
		return errors.InvalidInput(fmt.Sprintf("sigmaSector must be at least 1, got %d", *q.SigmaSector))
	}
	if q.Q != nil && *q.Q <= 0 {
		return errors.InvalidInput(fmt.Sprintf("q must be positive, got %v", *q.Q))
	}
	if _, err := q.Params(energy.DefaultParams()); err != nil {
		return err
	}
	return nil
}

// Params applies the observer overrides to base and validates the result
func (q *BrickQuery) Params(base energy.Params) (energy.Params, error) {
	p := base
	if q.ObserverPressureFactor != nil {
		p.PressureFactor = *q.ObserverPressureFactor
	}
	if q.ObserverRapidityCap != nil {
		p.RapidityCap = *q.ObserverRapidityCap
	}
	if q.ObserverTypeITolerance != nil {
		p.TypeITolerance = *q.ObserverTypeITolerance
	}
	if err := p.Validate(); err != nil {
		return p, &errors.AppError{Code: errors.CodeInvalidInput, Message: "invalid observer parameters", Cause: err}
	}
	return p, nil
}

// HasObserverOverrides reports whether any observer parameter was given
func (q *BrickQuery) HasObserverOverrides() bool {
	return q.ObserverPressureFactor != nil || q.ObserverRapidityCap != nil || q.ObserverTypeITolerance != nil
}

// ParseDims reads "NxMxK"; a single "N" means N^3
func ParseDims(s string) (brick.Dims, error) {
	var dims brick.Dims
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) == 1 {
		parts = []string{parts[0], parts[0], parts[0]}
	}
	if len(parts) != 3 {
		return dims, errors.InvalidInput(fmt.Sprintf("dims must look like NxMxK, got %q", s))
	}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return dims, errors.InvalidInput(fmt.Sprintf("dims must be positive integers, got %q", s))
		}
		dims[i] = n
	}
	return dims, nil
}

// queryParser collects the first parse error so call sites stay flat
type queryParser struct {
	values url.Values
	err    error
}

func (p *queryParser) raw(name string) (string, bool) {
	v := strings.TrimSpace(p.values.Get(name))
	return v, v != "" && p.err == nil
}

func (p *queryParser) floatParam(name string) *float64 {
	raw, ok := p.raw(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = errors.InvalidInput(fmt.Sprintf("%s must be a finite number, got %q", name, raw))
		return nil
	}
	return &v
}

func (p *queryParser) intParam(name string) *int {
	raw, ok := p.raw(name)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = errors.InvalidInput(fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return nil
	}
	return &v
}

func (p *queryParser) boolParam(name string) *bool {
	raw, ok := p.raw(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.err = errors.InvalidInput(fmt.Sprintf("%s must be a boolean, got %q", name, raw))
		return nil
	}
	return &v
}
