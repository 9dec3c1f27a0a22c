package profile

import (
	"context"
	"fmt"
	"strings"
)

// Fields is the loosely-typed field set produced by the extraction agent.
// Recognized keys: firstName, middleName, lastName, fullName, name (nested
// map), dateOfBirth, address, interests, medicalConsiderations.
type Fields map[string]any

// Graph is the full persisted profile graph for one user.
type Graph struct {
	Exists   bool           `json:"exists"`
	User     UserProfile    `json:"profile"`
	Spouse   *SpouseProfile `json:"spouse,omitempty"`
	Children []ChildProfile `json:"children"`
}

// Store is durable CRUD over the profile graph. Mutations use merge
// semantics: supplied fields overlay the existing record, the merged whole is
// re-validated, persisted, and the user's completion flag is recomputed.
//
// There is no optimistic concurrency control; concurrent writes to the same
// user resolve as last merge wins.
type Store interface {
	GetProfile(ctx context.Context, userID string) (Graph, error)
	UpdateUser(ctx context.Context, userID string, fields Fields) error
	AddOrReplaceSpouse(ctx context.Context, userID string, fields Fields) error
	AddChild(ctx context.Context, userID string, fields Fields) (childID string, err error)
	UpdateChild(ctx context.Context, userID, childID string, fields Fields) error
	CompletionStatus(ctx context.Context, userID string) (CompletionStatus, error)
}

// applyPersonFields merges name and date-of-birth fields onto p. A bare
// fullName is split into components when structured parts are absent.
func applyPersonFields(p *PersonProfile, fields Fields) error {
	if raw, ok := fields["name"]; ok {
		if nested, ok := raw.(map[string]any); ok {
			if v, ok := stringField(nested, "firstName"); ok {
				p.Name.FirstName = v
			}
			if v, ok := stringField(nested, "middleName"); ok {
				p.Name.MiddleName = v
			}
			if v, ok := stringField(nested, "lastName"); ok {
				p.Name.LastName = v
			}
		}
	} else if raw, ok := stringField(fields, "fullName"); ok && raw != "" {
		name, err := ParseFullName(raw)
		if err != nil {
			return err
		}
		p.Name = name
	}

	if v, ok := stringField(fields, "firstName"); ok {
		p.Name.FirstName = v
	}
	if v, ok := stringField(fields, "middleName"); ok {
		p.Name.MiddleName = v
	}
	if v, ok := stringField(fields, "lastName"); ok {
		p.Name.LastName = v
	}
	if v, ok := stringField(fields, "dateOfBirth"); ok {
		p.DateOfBirth = v
	}
	return nil
}

func applyUserFields(u *UserProfile, fields Fields) error {
	if err := applyPersonFields(&u.PersonProfile, fields); err != nil {
		return err
	}
	if v, ok := stringField(fields, "address"); ok {
		u.Address = v
	}
	return nil
}

func applyChildFields(c *ChildProfile, fields Fields) error {
	if err := applyPersonFields(&c.PersonProfile, fields); err != nil {
		return err
	}
	if raw, ok := fields["interests"]; ok {
		c.Interests = toStringList(raw)
	}
	if raw, ok := fields["medicalConsiderations"]; ok {
		c.MedicalConsiderations = toStringList(raw)
	}
	return nil
}

func stringField(fields map[string]any, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), true
	case nil:
		return "", false
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v)), true
	}
}

func toStringList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					result = append(result, trimmed)
				}
			}
		}
		return result
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return []string{trimmed}
		}
		return []string{}
	default:
		return []string{}
	}
}
