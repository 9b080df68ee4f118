package source

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer maps raw team names onto a canonical form so composite matching
// can compare records across sources. The default implementation is an exact
// matcher over folded names plus a per-league alias table; swapping in a
// fuzzier matcher only requires implementing this interface.
type Normalizer interface {
	Team(raw string) string
}

// CompositeKey is the normalized (home, away, date) tuple used for
// attribute-based matching and for the advisory lock that guards concurrent
// create-or-match decisions.
type CompositeKey struct {
	Home string
	Away string
	Date time.Time
}

// String renders the key in its stable lock/token form.
func (k CompositeKey) String() string {
	return k.Home + "@" + k.Away + "@" + k.Date.Format("2006-01-02")
}

// KeyFor builds the composite key for a record using the given normalizer.
func KeyFor(n Normalizer, r *Record) CompositeKey {
	return CompositeKey{
		Home: n.Team(r.HomeTeam),
		Away: n.Team(r.AwayTeam),
		Date: r.GameDate.UTC().Truncate(24 * time.Hour),
	}
}

// StandardNormalizer folds case, strips diacritics and punctuation, and
// collapses known MLB team aliases (abbreviations, city names, nicknames)
// onto one token per franchise.
type StandardNormalizer struct{}

var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Team normalizes a raw team name. Unrecognized names pass through in folded
// form so two sources spelling the same new name identically still match.
func (StandardNormalizer) Team(raw string) string {
	folded, _, err := transform.String(stripMarks, raw)
	if err != nil {
		folded = raw
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	key := strings.Join(strings.Fields(b.String()), " ")
	if canon, ok := teamAliases[key]; ok {
		return canon
	}
	return key
}

// teamAliases maps folded names and abbreviations onto franchise codes. One
// entry per spelling the feeds actually emit.
var teamAliases = map[string]string{
	"NYY": "NYY", "NEW YORK YANKEES": "NYY", "YANKEES": "NYY",
	"NYM": "NYM", "NEW YORK METS": "NYM", "METS": "NYM",
	"BOS": "BOS", "BOSTON RED SOX": "BOS", "RED SOX": "BOS", "BOSTON": "BOS",
	"TB": "TB", "TBR": "TB", "TAMPA BAY RAYS": "TB", "RAYS": "TB",
	"TOR": "TOR", "TORONTO BLUE JAYS": "TOR", "BLUE JAYS": "TOR",
	"BAL": "BAL", "BALTIMORE ORIOLES": "BAL", "ORIOLES": "BAL",
	"CLE": "CLE", "CLEVELAND GUARDIANS": "CLE", "GUARDIANS": "CLE",
	"DET": "DET", "DETROIT TIGERS": "DET", "TIGERS": "DET",
	"KC": "KC", "KCR": "KC", "KANSAS CITY ROYALS": "KC", "ROYALS": "KC",
	"MIN": "MIN", "MINNESOTA TWINS": "MIN", "TWINS": "MIN",
	"CWS": "CWS", "CHW": "CWS", "CHICAGO WHITE SOX": "CWS", "WHITE SOX": "CWS",
	"HOU": "HOU", "HOUSTON ASTROS": "HOU", "ASTROS": "HOU",
	"SEA": "SEA", "SEATTLE MARINERS": "SEA", "MARINERS": "SEA",
	"TEX": "TEX", "TEXAS RANGERS": "TEX", "RANGERS": "TEX",
	"LAA": "LAA", "LOS ANGELES ANGELS": "LAA", "ANGELS": "LAA",
	"ATH": "ATH", "OAK": "ATH", "OAKLAND ATHLETICS": "ATH", "ATHLETICS": "ATH",
	"ATL": "ATL", "ATLANTA BRAVES": "ATL", "BRAVES": "ATL",
	"PHI": "PHI", "PHILADELPHIA PHILLIES": "PHI", "PHILLIES": "PHI",
	"MIA": "MIA", "MIAMI MARLINS": "MIA", "MARLINS": "MIA",
	"WSH": "WSH", "WSN": "WSH", "WASHINGTON NATIONALS": "WSH", "NATIONALS": "WSH",
	"MIL": "MIL", "MILWAUKEE BREWERS": "MIL", "BREWERS": "MIL",
	"CHC": "CHC", "CHICAGO CUBS": "CHC", "CUBS": "CHC",
	"STL": "STL", "ST LOUIS CARDINALS": "STL", "CARDINALS": "STL",
	"CIN": "CIN", "CINCINNATI REDS": "CIN", "REDS": "CIN",
	"PIT": "PIT", "PITTSBURGH PIRATES": "PIT", "PIRATES": "PIT",
	"LAD": "LAD", "LOS ANGELES DODGERS": "LAD", "DODGERS": "LAD",
	"SD": "SD", "SDP": "SD", "SAN DIEGO PADRES": "SD", "PADRES": "SD",
	"SF": "SF", "SFG": "SF", "SAN FRANCISCO GIANTS": "SF", "GIANTS": "SF",
	"ARI": "ARI", "AZ": "ARI", "ARIZONA DIAMONDBACKS": "ARI", "DIAMONDBACKS": "ARI",
	"COL": "COL", "COLORADO ROCKIES": "COL", "ROCKIES": "COL",
}
