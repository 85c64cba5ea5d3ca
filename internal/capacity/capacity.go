// Package capacity splits the shared hourly posts budget into fixed bands.
// The split is a planning and disclosure artifact; it is not enforced
// against actual consumption.
package capacity

import "targetscope/internal/model"

// Band shares in basis points. They sum to exactly 10000.
const (
	KeywordsBasisPoints = 5500
	AccountsBasisPoints = 3500
	ReservedBasisPoints = 1000

	totalBasisPoints = 10000
)

// Bands holds the proportional split of total capacity. Reserved is never
// allocated to targets; it absorbs retries, session warm-up and safety margin.
type Bands struct {
	KeywordsBP int
	AccountsBP int
	ReservedBP int
}

// GetCapacityBands returns the fixed 55/35/10 split.
func GetCapacityBands() Bands {
	return Bands{KeywordsBP: KeywordsBasisPoints, AccountsBP: AccountsBasisPoints, ReservedBP: ReservedBasisPoints}
}

func (b Bands) KeywordsShare() float64 { return float64(b.KeywordsBP) / totalBasisPoints }
func (b Bands) AccountsShare() float64 { return float64(b.AccountsBP) / totalBasisPoints }
func (b Bands) ReservedShare() float64 { return float64(b.ReservedBP) / totalBasisPoints }

// TotalBasisPoints is 10000 for a well-formed split.
func (b Bands) TotalBasisPoints() int { return b.KeywordsBP + b.AccountsBP + b.ReservedBP }

// Shares is the JSON view of Bands.
type Shares struct {
	KeywordsShare float64 `json:"keywordsShare"`
	AccountsShare float64 `json:"accountsShare"`
	ReservedShare float64 `json:"reservedShare"`
}

func (b Bands) Shares() Shares {
	return Shares{KeywordsShare: b.KeywordsShare(), AccountsShare: b.AccountsShare(), ReservedShare: b.ReservedShare()}
}

// Allocation is the band split of a concrete capacity figure.
type Allocation struct {
	// NoCapacity is the terminal state: no healthy session and nothing to run.
	NoCapacity bool   `json:"noCapacity"`
	Total      int    `json:"total"`
	Keywords   int    `json:"keywords"`
	Accounts   int    `json:"accounts"`
	Reserved   int    `json:"reserved"`
	Shares     Shares `json:"shares"`
}

// Allocatable is the capacity targets may draw on; Reserved is excluded.
func (a Allocation) Allocatable() int { return a.Keywords + a.Accounts }

// BandFor returns the budget of the band serving targets of type t.
func (a Allocation) BandFor(t model.TargetType) int {
	switch t {
	case model.TypeKeyword:
		return a.Keywords
	case model.TypeAccount:
		return a.Accounts
	}
	return 0
}

// Allocator applies a set of bands.
type Allocator struct {
	bands Bands
}

type Option func(*Allocator)

// WithBands overrides the fixed split. Intended for tests.
func WithBands(b Bands) Option { return func(a *Allocator) { a.bands = b } }

func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{bands: GetCapacityBands()}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Allocator) Bands() Bands { return a.bands }

// Split divides total posts/hour. Keyword and account bands are floored;
// the rounding remainder lands in Reserved so the parts always sum to total.
func (a *Allocator) Split(total int) Allocation {
	if total < 0 {
		total = 0
	}
	kw := total * a.bands.KeywordsBP / totalBasisPoints
	acc := total * a.bands.AccountsBP / totalBasisPoints
	return Allocation{
		Total:    total,
		Keywords: kw,
		Accounts: acc,
		Reserved: total - kw - acc,
		Shares:   a.bands.Shares(),
	}
}

// Allocate splits the snapshot's total capacity. A zero total means no
// healthy session; combined with no active targets it is reported as
// NoCapacity instead of a 0/0/0 split.
func (a *Allocator) Allocate(snap model.CapacitySnapshot, activeTargets int) Allocation {
	if snap.TotalCapacity <= 0 && activeTargets == 0 {
		return Allocation{NoCapacity: true, Shares: a.bands.Shares()}
	}
	return a.Split(snap.TotalCapacity)
}

// Window splits what is left of the current quota window. Commits draw on
// this, while Allocate describes the whole hourly capacity.
func (a *Allocator) Window(snap model.CapacitySnapshot) Allocation {
	return a.Split(snap.Remaining)
}

// Allocate uses the fixed bands.
func Allocate(snap model.CapacitySnapshot, activeTargets int) Allocation {
	return NewAllocator().Allocate(snap, activeTargets)
}
