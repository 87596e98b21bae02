package leadimport

import (
	"strings"

	"github.com/crm-lead-import-api/internal/models"
)

// candidate is a validated lead tagged with the row it came from
type candidate struct {
	row  int
	lead models.CandidateLead
}

type nameCompanyKey struct {
	name    string
	company string
}

// matchKeys holds the normalized values duplicate detection compares
type matchKeys struct {
	email   string
	phone   string
	name    string
	company string
}

func newMatchKeys(name, email, phone, company string) matchKeys {
	return matchKeys{
		email:   normalizeForComparison(email),
		phone:   normalizeForComparison(phone),
		name:    normalizeForComparison(name),
		company: normalizeForComparison(company),
	}
}

// nameCompany is only usable when both halves are present
func (k matchKeys) nameCompany() (nameCompanyKey, bool) {
	if k.name == "" || k.company == "" {
		return nameCompanyKey{}, false
	}
	return nameCompanyKey{name: k.name, company: k.company}, true
}

// normalizeForComparison lower-cases, trims and collapses whitespace runs
func normalizeForComparison(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// leadIndex maps each match key to the position of the first lead carrying it
type leadIndex struct {
	byEmail       map[string]int
	byPhone       map[string]int
	byNameCompany map[nameCompanyKey]int
}

func newLeadIndex(capacity int) *leadIndex {
	return &leadIndex{
		byEmail:       make(map[string]int, capacity),
		byPhone:       make(map[string]int, capacity),
		byNameCompany: make(map[nameCompanyKey]int, capacity),
	}
}

func (ix *leadIndex) add(k matchKeys, pos int) {
	if k.email != "" {
		if _, ok := ix.byEmail[k.email]; !ok {
			ix.byEmail[k.email] = pos
		}
	}
	if k.phone != "" {
		if _, ok := ix.byPhone[k.phone]; !ok {
			ix.byPhone[k.phone] = pos
		}
	}
	if nc, ok := k.nameCompany(); ok {
		if _, exists := ix.byNameCompany[nc]; !exists {
			ix.byNameCompany[nc] = pos
		}
	}
}

// lookup returns the criteria k matches anywhere in the index and the
// earliest position among the hits.
func (ix *leadIndex) lookup(k matchKeys) (matched []string, first int, found bool) {
	first = -1
	hit := func(pos int) {
		if first < 0 || pos < first {
			first = pos
		}
	}

	if k.email != "" {
		if pos, ok := ix.byEmail[k.email]; ok {
			matched = append(matched, FieldEmail)
			hit(pos)
		}
	}
	if k.phone != "" {
		if pos, ok := ix.byPhone[k.phone]; ok {
			matched = append(matched, FieldPhone)
			hit(pos)
		}
	}
	if nc, ok := k.nameCompany(); ok {
		if pos, ok := ix.byNameCompany[nc]; ok {
			matched = append(matched, FieldName, FieldCompany)
			hit(pos)
		}
	}
	return matched, first, first >= 0
}

// matchedFields lists the criteria on which a and b agree
func matchedFields(a, b matchKeys) []string {
	var fields []string
	if a.email != "" && a.email == b.email {
		fields = append(fields, FieldEmail)
	}
	if a.phone != "" && a.phone == b.phone {
		fields = append(fields, FieldPhone)
	}
	if anc, ok := a.nameCompany(); ok {
		if bnc, ok := b.nameCompany(); ok && anc == bnc {
			fields = append(fields, FieldName, FieldCompany)
		}
	}
	return fields
}

func candidateKeys(c candidate) matchKeys {
	return newMatchKeys(c.lead.Name, c.lead.Email, c.lead.Phone, c.lead.Company)
}

// detectInternalDuplicates walks rows in file order. The first row carrying
// an identity is kept; later rows matching any kept row on email, phone or
// name+company are flagged.
func detectInternalDuplicates(rows []candidate) []models.DuplicateInfo {
	seen := newLeadIndex(len(rows))
	var duplicates []models.DuplicateInfo

	for i, c := range rows {
		keys := candidateKeys(c)
		if matched, _, found := seen.lookup(keys); found {
			duplicates = append(duplicates, models.DuplicateInfo{
				Row:           c.row,
				Lead:          c.lead,
				DuplicateType: models.DuplicateInternal,
				MatchedFields: matched,
			})
			continue
		}
		seen.add(keys, i)
	}
	return duplicates
}

// detectExternalDuplicates compares rows against stored leads. Rows in skip
// were already flagged internally and are not re-tested. The conflicting
// lead is the first snapshot entry matching on any criterion.
func detectExternalDuplicates(rows []candidate, skip map[int]bool, existing []models.ExistingLead) []models.DuplicateInfo {
	if len(existing) == 0 {
		return nil
	}

	stored := make([]matchKeys, len(existing))
	index := newLeadIndex(len(existing))
	for i, e := range existing {
		stored[i] = newMatchKeys(e.Name, e.Email, e.Phone, e.Company)
		index.add(stored[i], i)
	}

	var duplicates []models.DuplicateInfo
	for _, c := range rows {
		if skip[c.row] {
			continue
		}
		keys := candidateKeys(c)
		_, pos, found := index.lookup(keys)
		if !found {
			continue
		}
		duplicates = append(duplicates, models.DuplicateInfo{
			Row:            c.row,
			Lead:           c.lead,
			DuplicateType:  models.DuplicateExternal,
			MatchedFields:  matchedFields(keys, stored[pos]),
			ExistingLeadID: existing[pos].ID,
		})
	}
	return duplicates
}
