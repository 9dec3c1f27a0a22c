package profile

import "time"

// NewUserProfile builds and validates a user profile from extracted fields.
// Returns *ValidationError when any domain rule fails.
func NewUserProfile(fields Fields, now time.Time) (UserProfile, error) {
	user := UserProfile{ProfileCreatedAt: now, ProfileUpdatedAt: now}
	if err := applyUserFields(&user, fields); err != nil {
		return UserProfile{}, err
	}
	if err := user.ValidateAt(now); err != nil {
		return UserProfile{}, err
	}
	return user, nil
}

func NewSpouseProfile(fields Fields, now time.Time) (SpouseProfile, error) {
	spouse := SpouseProfile{}
	if err := applyPersonFields(&spouse.PersonProfile, fields); err != nil {
		return SpouseProfile{}, err
	}
	if err := spouse.ValidateAt(now); err != nil {
		return SpouseProfile{}, err
	}
	return spouse, nil
}

func NewChildProfile(fields Fields, now time.Time) (ChildProfile, error) {
	child := ChildProfile{Interests: []string{}, MedicalConsiderations: []string{}}
	if err := applyChildFields(&child, fields); err != nil {
		return ChildProfile{}, err
	}
	if err := child.ValidateAt(now); err != nil {
		return ChildProfile{}, err
	}
	return child, nil
}
