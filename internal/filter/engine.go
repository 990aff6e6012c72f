// Package filter narrows and orders the client board.
package filter

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// Supported orderings.
const (
	OrderRecent = "recent"
	OrderStatus = "status"
	OrderName   = "name"
)

// Apply returns the records matching q in q.Order. The input slice is not modified.
// Equal sort keys fall back to the record id, so the output depends only on the inputs.
func Apply(records []domain.Client, q domain.ClientQuery) []domain.Client {
	m := newMatcher(q)
	out := make([]domain.Client, 0, len(records))
	for _, rec := range records {
		if m.match(&rec) {
			out = append(out, rec)
		}
	}

	sortClients(out, q.Order)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// NormalizeOrder maps user input onto a supported ordering, defaulting to most recent first.
func NormalizeOrder(order string) string {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case OrderStatus:
		return OrderStatus
	case OrderName:
		return OrderName
	default:
		return OrderRecent
	}
}

// IsAll reports whether a filter value means "no filter".
func IsAll(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all", "todos":
		return true
	}
	return false
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type matcher struct {
	status       string
	owner        string
	bank         string
	contractType string
	text         string
	digits       string
}

func newMatcher(q domain.ClientQuery) matcher {
	m := matcher{}
	if !IsAll(q.Status) {
		m.status = strings.TrimSpace(q.Status)
	}
	if !IsAll(q.Owner) {
		m.owner = strings.TrimSpace(q.Owner)
	}
	if !IsAll(q.Bank) {
		m.bank = strings.TrimSpace(q.Bank)
	}
	if !IsAll(q.ContractType) {
		m.contractType = strings.TrimSpace(q.ContractType)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		m.text = fold(search)
		if phoneLike(search) {
			m.digits = Digits(search)
		}
	}
	return m
}

func (m matcher) match(c *domain.Client) bool {
	if m.status != "" && string(c.Status) != m.status {
		return false
	}
	if m.owner != "" && c.Owner != m.owner {
		return false
	}
	if m.bank != "" && c.Bank != m.bank {
		return false
	}
	if m.contractType != "" && c.ContractType != m.contractType {
		return false
	}
	if m.text == "" {
		return true
	}
	if strings.Contains(fold(c.Name), m.text) {
		return true
	}
	if m.digits != "" {
		if strings.Contains(Digits(c.Phone), m.digits) || strings.Contains(Digits(c.Document), m.digits) {
			return true
		}
	}
	if c.Phone != "" && strings.Contains(fold(c.Phone), m.text) {
		return true
	}
	return c.Document != "" && strings.Contains(fold(c.Document), m.text)
}

// phoneLike reports whether s holds only digits and phone punctuation, with at least one digit.
func phoneLike(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("()+-. ", r):
		default:
			return false
		}
	}
	return digits > 0
}

func sortClients(records []domain.Client, order string) {
	var less func(a, b *domain.Client) bool
	switch NormalizeOrder(order) {
	case OrderStatus:
		less = func(a, b *domain.Client) bool {
			if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
				return ra < rb
			}
			return nameLess(a, b)
		}
	case OrderName:
		less = nameLess
	default:
		less = func(a, b *domain.Client) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return less(&records[i], &records[j])
	})
}

func nameLess(a, b *domain.Client) bool {
	if fa, fb := fold(a.Name), fold(b.Name); fa != fb {
		return fa < fb
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// fold lowercases s and strips combining marks, so "Análise" matches "analise".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
