package ner

import (
	"context"
	"regexp"

	"go.uber.org/zap"
)

// classPattern is one scored expression bound to an entity class. A
// non-zero group narrows the span to that capture group.
type classPattern struct {
	name       string
	entityType string
	re         *regexp.Regexp
	score      float64
	group      int
}

// Entity classes emitted by the NER engines. Pattern recognizers own the
// structured identifiers; these cover the open-ended classes.
const (
	ClassPerson       = "PERSON"
	ClassDateTime     = "DATE_TIME"
	ClassLocation     = "LOCATION"
	ClassOrganization = "ORGANIZATION"
)

// Confidence per class. Person claims sit above the generic classes
// because the gazetteer produces very few false positives; all of them
// stay below the high-confidence pattern recognizers so a structured
// identifier always wins a contested span.
const (
	personScore       = 0.85
	locationScore     = 0.75
	organizationScore = 0.70
	dateTimeScore     = 0.60
)

// firstNames is the given-name gazetteer. Deliberately common US names:
// the heuristic engine trades recall for determinism, and the model
// engine exists for anything beyond it.
const firstNames = `John|Jane|Mary|Robert|Michael|Sarah|David|Emily|James|Linda|William|Patricia|Maria|Susan|Richard|Karen|Thomas|Nancy|Daniel|Lisa|Christopher|Betty|Matthew|Margaret|Anthony|Sandra|Mark|Ashley|Joseph|Jennifer`

// locations is the place-name gazetteer, longest names first so the
// leftmost match covers the full name.
const locations = `New York City|New York|Los Angeles|San Francisco|Philadelphia|Springfield|Baltimore|Anytown|Houston|Chicago|Seattle|Atlanta|Boston|Denver|Miami|Dallas|Phoenix|Portland`

// HeuristicEngine is the deterministic NER implementation: gazetteers for
// people and places, a small date grammar, and an organization suffix
// rule. It needs no model files and behaves identically on every run.
type HeuristicEngine struct {
	patterns []classPattern
	logger   *zap.Logger
}

// NewHeuristicEngine builds the engine with its fixed rule set.
func NewHeuristicEngine(logger *zap.Logger) *HeuristicEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeuristicEngine{
		logger: logger,
		patterns: []classPattern{
			// The honorific itself stays outside the span: "saw Dr. Jane
			// Smith" masks to "saw Dr. <PERSON>".
			{
				name:       "person (honorific)",
				entityType: ClassPerson,
				re:         regexp.MustCompile(`\b(?:Dr|Mr|Mrs|Ms|Prof)\.\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
				score:      personScore,
				group:      1,
			},
			{
				name:       "person (given name + surname)",
				entityType: ClassPerson,
				re:         regexp.MustCompile(`\b(?:` + firstNames + `)\s+[A-Z][a-z]+\b`),
				score:      personScore,
			},
			{
				name:       "location (gazetteer)",
				entityType: ClassLocation,
				re:         regexp.MustCompile(`\b(?:` + locations + `)\b`),
				score:      locationScore,
			},
			{
				name:       "organization (institutional suffix)",
				entityType: ClassOrganization,
				re:         regexp.MustCompile(`\b([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*\s+(?:Hospital|Clinic|Medical Center|Health System|Inc|LLC|Corp))\b`),
				score:      organizationScore,
			},
			{
				name:       "date (ISO)",
				entityType: ClassDateTime,
				re:         regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
				score:      dateTimeScore,
			},
			{
				name:       "date (slash)",
				entityType: ClassDateTime,
				re:         regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
				score:      dateTimeScore,
			},
			{
				name:       "date (month name)",
				entityType: ClassDateTime,
				re:         regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,\s*\d{4})?\b`),
				score:      dateTimeScore,
			},
			{
				name:       "date (relative)",
				entityType: ClassDateTime,
				re:         regexp.MustCompile(`(?i)\b(?:yesterday|today|tomorrow)\b`),
				score:      dateTimeScore,
			},
			{
				name:       "time of day",
				entityType: ClassDateTime,
				re:         regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\s*(?:[AaPp][Mm])?\b`),
				score:      dateTimeScore,
			},
		},
	}
}

// Recognize runs every rule over text. Rules may claim overlapping spans;
// overlap resolution belongs to the analyzer, not here.
func (e *HeuristicEngine) Recognize(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var spans []Span
	for _, p := range e.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if p.group > 0 {
				gi := 2 * p.group
				if gi+1 >= len(loc) || loc[gi] < 0 {
					continue
				}
				start, end = loc[gi], loc[gi+1]
			}
			if start >= end {
				continue
			}
			spans = append(spans, Span{
				EntityType: p.entityType,
				Start:      start,
				End:        end,
				Score:      p.score,
			})
		}
	}
	return spans, nil
}

// Close is a no-op; the engine holds no external resources.
func (e *HeuristicEngine) Close() error { return nil }
