package brick

import (
	"fmt"
	"math"
)

// Kind is the only brick kind the wire format accepts
const Kind = "stress-energy-brick"

// Channel names in wire order
const (
	ChannelT00  = "t00"
	ChannelSx   = "Sx"
	ChannelSy   = "Sy"
	ChannelSz   = "Sz"
	ChannelDivS = "divS"
)

// ChannelOrder is the fixed payload order of the binary wire format
var ChannelOrder = []string{ChannelT00, ChannelSx, ChannelSy, ChannelSz, ChannelDivS}

// Dims holds the voxel grid extents (nx, ny, nz)
type Dims [3]int

// Voxels returns nx*ny*nz
func (d Dims) Voxels() int {
	return d[0] * d[1] * d[2]
}

// Valid reports whether every extent is positive
func (d Dims) Valid() bool {
	return d[0] > 0 && d[1] > 0 && d[2] > 0
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d[0], d[1], d[2])
}

// Channel is a flat run of float32 samples plus its declared range
type Channel struct {
	Data []float32 `json:"-"`
	Min  float32   `json:"min"`
	Max  float32   `json:"max"`
}

// Len returns the number of samples
func (c Channel) Len() int {
	return len(c.Data)
}

// Provenance describes where a brick came from. Downstream consumers use it for trust labels.
type Provenance struct {
	Source          string `json:"source,omitempty"`
	Proxy           bool   `json:"proxy,omitempty"`
	Congruence      string `json:"congruence,omitempty"`
	MetricT00Ref    string `json:"metricT00Ref,omitempty"`
	MetricT00Source string `json:"metricT00Source,omitempty"`
}

// NatarioStats carries shift-vector divergence diagnostics
type NatarioStats struct {
	DivBetaMax    float64  `json:"divBetaMax"`
	DivBetaRms    float64  `json:"divBetaRms"`
	DivBetaMaxPre *float64 `json:"divBetaMaxPre,omitempty"`
	DivBetaRmsPre *float64 `json:"divBetaRmsPre,omitempty"`
	ClampScale    *float64 `json:"clampScale,omitempty"`
	GateLimit     float64  `json:"gateLimit"`
	GNatario      float64  `json:"gNatario"`
}

// ConservationStats carries flux divergence statistics and net flux norms
type ConservationStats struct {
	DivMean          float64 `json:"divMean"`
	DivAbsMean       float64 `json:"divAbsMean"`
	DivRms           float64 `json:"divRms"`
	DivMaxAbs        float64 `json:"divMaxAbs"`
	NetFluxMagnitude float64 `json:"netFluxMagnitude"`
	NetFluxNorm      float64 `json:"netFluxNorm"`
	DivRmsNorm       float64 `json:"divRmsNorm"`
}

// MappingSource tells whether physical parameters came from the pipeline or were substituted
type MappingSource string

const (
	MappingPipeline MappingSource = "pipeline"
	MappingProxy    MappingSource = "proxy"
	MappingOverride MappingSource = "override"
)

// MappingStats records the physical parameters used to generate the brick
type MappingStats struct {
	GapNm     *float64      `json:"gap_nm,omitempty"`
	CavityQ   *float64      `json:"cavityQ,omitempty"`
	AmpBase   *float64      `json:"ampBase,omitempty"`
	GammaGeo  *float64      `json:"gammaGeo,omitempty"`
	GammaVdB  *float64      `json:"gammaVdB,omitempty"`
	Zeta      *float64      `json:"zeta,omitempty"`
	DutyFR    *float64      `json:"dutyFR,omitempty"`
	Source    MappingSource `json:"source"`
	Proxy     bool          `json:"proxy"`
	Overrides []string      `json:"overrides,omitempty"`
}

// Stats is the aggregate block shipped alongside the channels
type Stats struct {
	TotalEnergy      float64                    `json:"totalEnergy_J"`
	InvariantMass    *float64                   `json:"invariantMass_kg,omitempty"`
	InvariantEnergy  *float64                   `json:"invariantEnergy_J,omitempty"`
	AvgT00           float64                    `json:"avgT00"`
	AvgFluxMagnitude float64                    `json:"avgFluxMagnitude"`
	NetFlux          [3]float64                 `json:"netFlux"`
	DivMin           float64                    `json:"divMin"`
	DivMax           float64                    `json:"divMax"`
	DutyFR           float64                    `json:"dutyFR"`
	StrobePhase      float64                    `json:"strobePhase"`
	Natario          *NatarioStats              `json:"natario,omitempty"`
	Conservation     *ConservationStats         `json:"conservation,omitempty"`
	Mapping          *MappingStats              `json:"mapping,omitempty"`
	ObserverRobust   *ObserverRobustDiagnostics `json:"observerRobust,omitempty"`
}

// Brick is a decoded stress-energy volume. It is treated as immutable once built.
type Brick struct {
	Dims       Dims
	T00        Channel
	Sx         Channel
	Sy         Channel
	Sz         Channel
	DivS       Channel
	Stats      Stats
	Provenance Provenance
	VoxelBytes int
}

// Voxels returns the number of voxels in the grid
func (b *Brick) Voxels() int {
	return b.Dims.Voxels()
}

// Index flattens (x, y, z) with x varying fastest
func (b *Brick) Index(x, y, z int) int {
	return x + b.Dims[0]*(y+b.Dims[1]*z)
}

// Channel returns the named channel
func (b *Brick) Channel(name string) (*Channel, bool) {
	switch name {
	case ChannelT00:
		return &b.T00, true
	case ChannelSx:
		return &b.Sx, true
	case ChannelSy:
		return &b.Sy, true
	case ChannelSz:
		return &b.Sz, true
	case ChannelDivS:
		return &b.DivS, true
	}
	return nil, false
}

// Validate checks the shared-length invariant across channels
func (b *Brick) Validate() error {
	if !b.Dims.Valid() {
		return fmt.Errorf("invalid dims %v", b.Dims)
	}
	want := b.Dims.Voxels()
	for _, name := range ChannelOrder {
		ch, _ := b.Channel(name)
		if ch.Len() != want {
			return fmt.Errorf("channel %s has %d samples, expected %d", name, ch.Len(), want)
		}
	}
	return nil
}

// ChannelRange returns min/max over the finite samples; both are zero for an all-NaN channel
func ChannelRange(data []float32) (float32, float32) {
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// ComputeStats rebuilds the density/flux aggregates from the channels.
// voxelVolume scales densities into total energy; sub-blocks of prev are preserved.
func ComputeStats(b *Brick, voxelVolume float64, prev Stats) Stats {
	out := prev
	n := b.Voxels()
	if n == 0 || b.Validate() != nil {
		return out
	}

	var sumT00, sumFlux float64
	var net [3]float64
	divMin, divMax := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		rho := finite(b.T00.Data[i])
		sx, sy, sz := finite(b.Sx.Data[i]), finite(b.Sy.Data[i]), finite(b.Sz.Data[i])
		sumT00 += rho
		sumFlux += math.Sqrt(sx*sx + sy*sy + sz*sz)
		net[0] += sx
		net[1] += sy
		net[2] += sz

		div := finite(b.DivS.Data[i])
		divMin = math.Min(divMin, div)
		divMax = math.Max(divMax, div)
	}

	out.TotalEnergy = sumT00 * voxelVolume
	out.AvgT00 = sumT00 / float64(n)
	out.AvgFluxMagnitude = sumFlux / float64(n)
	out.NetFlux = net
	out.DivMin = divMin
	out.DivMax = divMax
	return out
}

func finite(v float32) float64 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
