// Package section stores independently generated page sections and
// assembles them into one document.
//
// Sections are keyed by name and assembled in a fixed order (header,
// hero, features, footer) regardless of generation order. Regenerating
// one section replaces only that slot; assembly is a pure function of
// the current store contents.
package section

// Name identifies one of the four page regions.
type Name string

const (
	Header   Name = "header"
	Hero     Name = "hero"
	Features Name = "features"
	Footer   Name = "footer"
)

// Order returns all section names in assembly order.
func Order() []Name {
	return []Name{Header, Hero, Features, Footer}
}

// Valid reports whether n is a known section name.
func Valid(n Name) bool {
	switch n {
	case Header, Hero, Features, Footer:
		return true
	}
	return false
}
