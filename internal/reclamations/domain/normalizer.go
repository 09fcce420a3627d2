package domain

import "strings"

// statusAliases maps folded legacy spellings to canonical statuses. The
// stored data mixes French and English labels, casing variants, and
// accented/unaccented forms; this table is the single source of truth for
// all of them. No other component may pattern-match raw status strings.
var statusAliases = map[string]Status{
	"open":        StatusOpen,
	"ouvert":      StatusOpen,
	"ouverte":     StatusOpen,
	"nouveau":     StatusOpen,
	"nouvelle":    StatusOpen,
	"new":         StatusOpen,
	"a traiter":   StatusOpen,

	"in_progress":    StatusInProgress,
	"in progress":    StatusInProgress,
	"inprogress":     StatusInProgress,
	"en cours":       StatusInProgress,
	"encours":        StatusInProgress,
	"en_cours":       StatusInProgress,
	"en traitement":  StatusInProgress,
	"traitement":     StatusInProgress,
	"assigned":       StatusInProgress,
	"affecte":        StatusInProgress,
	"affectee":       StatusInProgress,

	"escalated": StatusEscalated,
	"escalade":  StatusEscalated,
	"escaladee": StatusEscalated,

	"resolved": StatusResolved,
	"resolu":   StatusResolved,
	"resolue":  StatusResolved,
	"traite":   StatusResolved,
	"traitee":  StatusResolved,
	"termine":  StatusResolved,
	"terminee": StatusResolved,

	"closed":    StatusClosed,
	"close":     StatusClosed,
	"ferme":     StatusClosed,
	"fermee":    StatusClosed,
	"cloture":   StatusClosed,
	"cloturee":  StatusClosed,
	"clos":      StatusClosed,
	"close_out": StatusClosed,
}

// accentFolder strips the diacritics that occur in the legacy French labels.
var accentFolder = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a",
	"î", "i", "ï", "i",
	"ô", "o",
	"û", "u", "ù", "u",
	"ç", "c",
	"É", "e", "È", "e", "Ê", "e",
	"À", "a", "Â", "a",
	"Î", "i", "Ô", "o", "Û", "u", "Ç", "c",
)

// Normalize maps a raw stored status string to its canonical status.
// The second return value reports whether the input was recognized.
// Unrecognized input maps to OPEN: misclassifying as "in progress" could
// hide unassigned work, so the fallback fails open. Pure and total; the
// caller is responsible for logging unrecognized inputs.
func Normalize(raw string) (Status, bool) {
	folded := strings.ToLower(accentFolder.Replace(strings.TrimSpace(raw)))

	// Canonical spellings fold to themselves.
	if canonical, ok := statusAliases[folded]; ok {
		return canonical, true
	}

	return StatusOpen, false
}
