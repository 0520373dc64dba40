package changes

import "fmt"

// ClassID identifies a component class. IDs are handed out by a ClassTable and
// are never derived from the class name, so two classes sharing a name stay
// distinct.
type ClassID uint32

// NoClass is the zero ClassID; no table ever hands it out.
const NoClass ClassID = 0

func (id ClassID) String() string {
	return fmt.Sprintf("class#%d", uint32(id))
}

type ClassTable struct {
	names []string
}

func NewClassTable() *ClassTable {
	return &ClassTable{}
}

// Define allocates a fresh ClassID for name.
func (t *ClassTable) Define(name string) ClassID {
	t.names = append(t.names, name)
	return ClassID(len(t.names))
}

// Name returns the name a class was defined with, or "" for unknown IDs.
func (t *ClassTable) Name(id ClassID) string {
	if id == NoClass || int(id) > len(t.names) {
		return ""
	}
	return t.names[id-1]
}

// Lookup returns the first class defined with name.
func (t *ClassTable) Lookup(name string) (ClassID, bool) {
	for i, n := range t.names {
		if n == name {
			return ClassID(i + 1), true
		}
	}
	return NoClass, false
}

func (t *ClassTable) Len() int {
	return len(t.names)
}
