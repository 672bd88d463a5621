package node

import (
	"fmt"
	"strings"
)

// Category is the highlight class of an occurrence.
type Category int

const (
	Unresolved Category = iota
	Attribute
	Builtin
	Free
	Global
	Parameter
	ParameterUnused
	Self
	Imported
	Local
	Selected
)

var categoryNames = [...]string{
	Unresolved:      "unresolved",
	Attribute:       "attribute",
	Builtin:         "builtin",
	Free:            "free",
	Global:          "global",
	Parameter:       "parameter",
	ParameterUnused: "parameterUnused",
	Self:            "self",
	Imported:        "imported",
	Local:           "local",
	Selected:        "selected",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Group is the editor highlight group name, e.g. "pyscopeLocal".
func (c Category) Group() string {
	s := c.String()
	return "pyscope" + strings.ToUpper(s[:1]) + s[1:]
}

// Categories lists every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// ParseCategory returns the category with the given name. Matching ignores
// case.
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("node: unknown category %q", name)
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
