package profile

import (
	"fmt"
	"strings"
)

// CompletionStatus describes whether the profile graph is whole and which
// field identifiers are still missing.
type CompletionStatus struct {
	IsComplete    bool     `json:"isComplete"`
	MissingFields []string `json:"missingFields"`
}

// CompletionOf derives completion from the full graph. Spouse and children
// are optional; their absence never counts against completeness, but a
// partially filled spouse or child record does. Field identifiers follow the
// persisted layout: bare names for the user, spouse_ prefixed names for the
// spouse, child_{n}_ prefixed names (1-based) for each child in store order.
func CompletionOf(graph Graph) CompletionStatus {
	if !graph.Exists {
		return CompletionStatus{IsComplete: false, MissingFields: []string{"profile"}}
	}

	missing := make([]string, 0, 4)
	appendMissingPerson(&missing, "", graph.User.PersonProfile)
	if strings.TrimSpace(graph.User.Address) == "" {
		missing = append(missing, "address")
	}

	if graph.Spouse != nil {
		appendMissingPerson(&missing, "spouse_", graph.Spouse.PersonProfile)
	}
	for i, child := range graph.Children {
		appendMissingPerson(&missing, fmt.Sprintf("child_%d_", i+1), child.PersonProfile)
	}

	return CompletionStatus{
		IsComplete:    len(missing) == 0,
		MissingFields: missing,
	}
}

func appendMissingPerson(missing *[]string, prefix string, p PersonProfile) {
	if strings.TrimSpace(p.Name.FirstName) == "" {
		*missing = append(*missing, prefix+"firstName")
	}
	if strings.TrimSpace(p.Name.LastName) == "" {
		*missing = append(*missing, prefix+"lastName")
	}
	if strings.TrimSpace(p.DateOfBirth) == "" {
		*missing = append(*missing, prefix+"dateOfBirth")
	}
}
