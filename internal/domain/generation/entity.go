package generation

import (
	"fmt"

	"github.com/songstudio/studio-api/internal/domain/credit"
)

// Kind is a generation feature. Each kind has its own price and ledger reason.
type Kind string

const (
	KindSong   Kind = "song"
	KindArt    Kind = "art"
	KindSocial Kind = "social"
)

// ParseKind validates a kind taken from the URL.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSong, KindArt, KindSocial:
		return k, nil
	}
	return "", ErrUnknownKind
}

// Reason returns the ledger tag charged for the kind.
func (k Kind) Reason() credit.Reason {
	switch k {
	case KindSong:
		return credit.ReasonGenerateSong
	case KindArt:
		return credit.ReasonGenerateArt
	default:
		return credit.ReasonGenerateSocial
	}
}

// Costs prices each kind in credits.
type Costs struct {
	Song   int
	Art    int
	Social int
}

// DefaultCosts matches the published price list.
func DefaultCosts() Costs {
	return Costs{Song: 4, Art: 2, Social: 1}
}

func (c Costs) For(k Kind) int {
	switch k {
	case KindSong:
		return c.Song
	case KindArt:
		return c.Art
	default:
		return c.Social
	}
}

// InsufficientCreditsError carries the numbers shown on the 402 response.
type InsufficientCreditsError struct {
	Balance  int
	Required int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d, required %d", e.Balance, e.Required)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return credit.ErrInsufficientCredits
}

// FailedError reports a generation whose model or storage step failed after
// the charge. Balance is the caller's balance once the refund ran; Refunded is
// false when the refund itself could not be written.
type FailedError struct {
	Kind     Kind
	Balance  int
	Refunded bool
	Err      error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrGenerationFailed, e.Kind, e.Err)
}

func (e *FailedError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}
