// Package ingest normalizes one upstream JSON:API page into Store rows and
// returns the set of opponent identities discovered on that page.
package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/3leaps/floratings/pkg/fetcher"
	"github.com/3leaps/floratings/pkg/wstore"
)

// includedDoc is one entry from a JSON:API page's "included" array, modeled
// as a tagged variant keyed by document ID (the "dynamic dictionaries"
// boundary): resolve references by explicit, commented lookups rather than
// chained optional-default accessors.
type includedDoc struct {
	ID         string
	Type       string
	Attributes json.RawMessage
}

type teamAttrs struct {
	IdentityTeamID json.Number `json:"identityTeamId"`
	Name           string      `json:"name"`
}

type eventAttrs struct {
	Name          string `json:"name"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
	Location      struct {
		Name string `json:"name"`
	} `json:"location"`
}

type wrestlerAttrs struct {
	IdentityPersonID string `json:"identityPersonId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	TeamID           string `json:"teamId"`
}

type weightClassAttrs struct {
	Name string `json:"name"`
}

type matchDoc struct {
	ID         string `json:"id"`
	Attributes struct {
		TopWrestlerID    *string `json:"topWrestlerId"`
		BottomWrestlerID *string `json:"bottomWrestlerId"`
		WinnerWrestlerID *string `json:"winnerWrestlerId"`
		WeightClassID    *string `json:"weightClassId"`
		EventID          *string `json:"eventId"`
		GoDateTime       *string `json:"goDateTime"`
		StartDateTime    *string `json:"startDateTime"`
		EndDateTime      *string `json:"endDateTime"`
		Result           string  `json:"result"`
		WinType          string  `json:"winType"`
	} `json:"attributes"`
}

// Options configures one ingest pass.
type Options struct {
	// ThisID is the wrestler identity currently being expanded.
	ThisID string

	// WeightClasses, if non-empty, restricts ingested matches to these
	// case-insensitive trimmed weight-class names.
	WeightClasses map[string]struct{}

	// StartDate/EndDate are inclusive calendar-date bounds; zero means
	// unbounded.
	StartDate, EndDate time.Time

	// Now is the wall-clock used for mark_fetch; defaults to time.Now.
	Now time.Time
}

// Stats counts skipped rows by reason, for the "Skipped N matches" aggregate
// log line.
type Stats struct {
	Bye                int
	UnresolvedWrestler int
	MissingWeight      int
	WeightFiltered     int
	DateFiltered       int
	Ingested           int
}

// Page ingests one fetcher.Page, writing Team/Event/Wrestler/Match rows to
// the store and returning the opponent identities discovered.
func Page(ctx context.Context, db *sql.DB, page fetcher.Page, opts Options) (map[string]struct{}, Stats, error) {
	lookup := make(map[string]includedDoc, len(page.Included))

	var raw []struct {
		ID         string          `json:"id"`
		Type       string          `json:"type"`
		Attributes json.RawMessage `json:"attributes"`
	}
	for _, inc := range page.Included {
		var doc struct {
			ID         string          `json:"id"`
			Type       string          `json:"type"`
			Attributes json.RawMessage `json:"attributes"`
		}
		if err := json.Unmarshal(inc, &doc); err != nil {
			continue
		}
		raw = append(raw, doc)
		lookup[doc.ID] = includedDoc{ID: doc.ID, Type: doc.Type, Attributes: doc.Attributes}
	}

	// Pass 1: teams and events.
	for _, doc := range raw {
		switch doc.Type {
		case "team":
			var a teamAttrs
			if err := json.Unmarshal(doc.Attributes, &a); err != nil {
				continue
			}
			teamID, err := a.IdentityTeamID.Int64()
			if err != nil {
				continue
			}
			if err := wstore.InsertTeam(ctx, db, wstore.TeamRow{ID: teamID, Name: a.Name}); err != nil {
				return nil, Stats{}, err
			}
		case "event":
			var a eventAttrs
			if err := json.Unmarshal(doc.Attributes, &a); err != nil {
				continue
			}
			date := a.StartDateTime
			if date == "" {
				date = a.EndDateTime
			}
			if err := wstore.InsertEvent(ctx, db, wstore.EventRow{
				ID:       doc.ID,
				Name:     a.Name,
				Date:     nullableString(date),
				Location: nullableString(a.Location.Name),
			}); err != nil {
				return nil, Stats{}, err
			}
		}
	}

	// Pass 2: wrestlers, with team resolved through the pass-one lookup.
	for _, doc := range raw {
		if doc.Type != "wrestler" {
			continue
		}
		var a wrestlerAttrs
		if err := json.Unmarshal(doc.Attributes, &a); err != nil {
			continue
		}
		if a.IdentityPersonID == "" {
			continue
		}
		var teamID sql.NullString
		if teamDoc, ok := resolveTeamDoc(lookup, a.TeamID); ok {
			teamID = sql.NullString{String: strconv.FormatInt(teamDoc, 10), Valid: true}
		}
		name := strings.TrimSpace(a.FirstName + " " + a.LastName)
		if err := wstore.InsertWrestler(ctx, db, wstore.WrestlerRow{ID: a.IdentityPersonID, Name: name, TeamID: teamID}); err != nil {
			return nil, Stats{}, err
		}
	}

	opponents := make(map[string]struct{})
	var stats Stats

	// Pass 3: matches.
	for _, rawMatch := range page.Data {
		var m matchDoc
		if err := json.Unmarshal(rawMatch, &m); err != nil {
			continue
		}
		if m.Attributes.WinType == "BYE" {
			stats.Bye++
			continue
		}

		topDoc, topOK := resolveWrestlerDoc(lookup, m.Attributes.TopWrestlerID)
		bottomDoc, bottomOK := resolveWrestlerDoc(lookup, m.Attributes.BottomWrestlerID)
		if !topOK || !bottomOK {
			stats.UnresolvedWrestler++
			continue
		}
		if topDoc.identityPersonID == "" || bottomDoc.identityPersonID == "" {
			stats.UnresolvedWrestler++
			continue
		}

		weightClass := ""
		if m.Attributes.WeightClassID != nil {
			if wcDoc, ok := lookup[*m.Attributes.WeightClassID]; ok {
				var wc weightClassAttrs
				if err := json.Unmarshal(wcDoc.Attributes, &wc); err == nil {
					weightClass = wc.Name
				}
			}
		}
		if strings.TrimSpace(weightClass) == "" {
			stats.MissingWeight++
			continue
		}
		if opts.WeightClasses != nil {
			if _, ok := opts.WeightClasses[normalizeWeightFilterKey(weightClass)]; !ok {
				stats.WeightFiltered++
				continue
			}
		}

		occurred, ok := resolveMatchTimestamp(m, lookup)
		allowedByDate := dateAllowed(occurred, ok, opts.StartDate, opts.EndDate)
		if !allowedByDate {
			stats.DateFiltered++
			continue
		}

		var eventID sql.NullString
		if m.Attributes.EventID != nil {
			eventID = sql.NullString{String: *m.Attributes.EventID, Valid: true}
		}

		winnerID := ""
		if m.Attributes.WinnerWrestlerID != nil && topDoc.docID == *m.Attributes.WinnerWrestlerID {
			winnerID = topDoc.identityPersonID
		} else {
			winnerID = bottomDoc.identityPersonID
		}

		var dateStr sql.NullString
		if ok {
			dateStr = sql.NullString{String: occurred.Format(time.RFC3339), Valid: true}
		}

		if err := wstore.InsertMatch(ctx, db, wstore.MatchRow{
			ID:               m.ID,
			TopWrestlerID:    topDoc.identityPersonID,
			BottomWrestlerID: bottomDoc.identityPersonID,
			WinnerID:         winnerID,
			WeightClass:      weightClass,
			EventID:          eventID,
			Date:             dateStr,
			Result:           nullableString(m.Attributes.Result),
			WinType:          nullableString(m.Attributes.WinType),
		}); err != nil {
			return nil, Stats{}, err
		}

		// Opponent resolution compares the resolved identity key against
		// this_id, not the raw document reference (see the corrected
		// behavior the spec calls out).
		opponentID := bottomDoc.identityPersonID
		if topDoc.identityPersonID != opts.ThisID {
			opponentID = topDoc.identityPersonID
		}
		if opponentID != "" && opponentID != opts.ThisID {
			opponents[opponentID] = struct{}{}
		}

		stats.Ingested++
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if err := wstore.MarkFetch(ctx, db, opts.ThisID, now); err != nil {
		return nil, Stats{}, err
	}

	return opponents, stats, nil
}

type wrestlerDoc struct {
	docID            string
	identityPersonID string
}

func resolveWrestlerDoc(lookup map[string]includedDoc, docID *string) (wrestlerDoc, bool) {
	if docID == nil {
		return wrestlerDoc{}, false
	}
	doc, ok := lookup[*docID]
	if !ok || doc.Type != "wrestler" {
		return wrestlerDoc{}, false
	}
	var a wrestlerAttrs
	if err := json.Unmarshal(doc.Attributes, &a); err != nil {
		return wrestlerDoc{}, false
	}
	return wrestlerDoc{docID: doc.ID, identityPersonID: a.IdentityPersonID}, true
}

func resolveTeamDoc(lookup map[string]includedDoc, teamID string) (int64, bool) {
	if teamID == "" {
		return 0, false
	}
	doc, ok := lookup[teamID]
	if !ok || doc.Type != "team" {
		return 0, false
	}
	var a teamAttrs
	if err := json.Unmarshal(doc.Attributes, &a); err != nil {
		return 0, false
	}
	id, err := a.IdentityTeamID.Int64()
	if err != nil {
		return 0, false
	}
	return id, true
}

func resolveMatchTimestamp(m matchDoc, lookup map[string]includedDoc) (time.Time, bool) {
	for _, candidate := range []*string{m.Attributes.GoDateTime, m.Attributes.StartDateTime, m.Attributes.EndDateTime} {
		if candidate != nil && *candidate != "" {
			if ts, err := parseTimestamp(*candidate); err == nil {
				return ts, true
			}
		}
	}
	if m.Attributes.EventID != nil {
		if doc, ok := lookup[*m.Attributes.EventID]; ok {
			var a eventAttrs
			if err := json.Unmarshal(doc.Attributes, &a); err == nil {
				for _, candidate := range []string{a.StartDateTime, a.EndDateTime} {
					if candidate != "" {
						if ts, err := parseTimestamp(candidate); err == nil {
							return ts, true
						}
					}
				}
			}
		}
	}
	return time.Time{}, false
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}

func dateAllowed(occurred time.Time, resolved bool, start, end time.Time) bool {
	if !resolved {
		return start.IsZero() && end.IsZero()
	}
	day := occurred.Truncate(24 * time.Hour)
	if !start.IsZero() && day.Before(start.Truncate(24*time.Hour)) {
		return false
	}
	if !end.IsZero() && day.After(end.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// normalizeWeightFilterKey makes weight-class filtering a case-insensitive
// comparison against trimmed names.
func normalizeWeightFilterKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeWeightClassSet builds the filter set from raw CLI-supplied names.
func NormalizeWeightClassSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[normalizeWeightFilterKey(n)] = struct{}{}
	}
	return set
}
