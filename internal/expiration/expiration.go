// Package expiration decides when a free wedding site stops being served.
//
// Rules, first match wins:
//
//  1. no site: expired
//  2. premium: never expires
//  3. no email (unregistered): 24 hours after creation
//  4. wedding date known: 30 days after the wedding
//  5. otherwise: 60 days after creation
//
// Every function takes the current time explicitly and has no side effects.
package expiration

import (
	"fmt"
	"math"
	"time"

	"bind8/internal/models"
)

const (
	UnregisteredGrace = 24 * time.Hour
	PostWeddingGrace  = 30 * 24 * time.Hour
	UndatedGrace      = 60 * 24 * time.Hour
)

// NeverExpires is the DaysRemaining value for premium sites.
const NeverExpires = -1

// Site is the subset of a wedding site the expiration rules read.
type Site struct {
	IsPremium   bool
	Email       string
	WeddingDate *time.Time
	CreatedAt   time.Time
}

// FromWedding projects a stored wedding onto a Site. A nil wedding yields nil.
func FromWedding(w *models.Wedding) *Site {
	if w == nil {
		return nil
	}
	return &Site{
		IsPremium:   w.IsPremium,
		Email:       w.Email,
		WeddingDate: w.WeddingDate,
		CreatedAt:   w.CreatedAt,
	}
}

// ExpirationDate returns when site expires. ok is false for a nil or
// premium site.
func ExpirationDate(site *Site) (at time.Time, ok bool) {
	if site == nil || site.IsPremium {
		return time.Time{}, false
	}
	switch {
	case site.Email == "":
		return site.CreatedAt.Add(UnregisteredGrace), true
	case site.WeddingDate != nil:
		return site.WeddingDate.Add(PostWeddingGrace), true
	default:
		return site.CreatedAt.Add(UndatedGrace), true
	}
}

// IsExpired reports whether site is past its expiration date at now.
func IsExpired(site *Site, now time.Time) bool {
	if site == nil {
		return true
	}
	at, ok := ExpirationDate(site)
	if !ok {
		return false
	}
	return now.After(at)
}

// DaysRemaining returns whole days left before site expires, rounded up and
// never negative. Premium sites return NeverExpires.
func DaysRemaining(site *Site, now time.Time) int {
	if site != nil && site.IsPremium {
		return NeverExpires
	}
	at, ok := ExpirationDate(site)
	if !ok {
		return 0
	}
	days := math.Ceil(at.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// Status renders the remaining lifetime of site for display.
func Status(site *Site, now time.Time) string {
	if site != nil && site.IsPremium {
		return "Never expires"
	}
	return StatusForDays(DaysRemaining(site, now))
}

// StatusForDays renders a DaysRemaining value. Counts are never singularised:
// seven days reads "Expires in 1 weeks".
func StatusForDays(days int) string {
	switch {
	case days == NeverExpires:
		return "Never expires"
	case days <= 0:
		return "Expired"
	case days == 1:
		return "Expires tomorrow"
	case days < 7:
		return fmt.Sprintf("Expires in %d days", days)
	case days <= 30:
		return fmt.Sprintf("Expires in %d weeks", days/7)
	default:
		return fmt.Sprintf("Expires in %d months", days/30)
	}
}
