package application

import (
	"context"
	"strings"
)

// Directory is the external employee-directory collaborator. The engine only
// reads it: existence checks before inviting, display names for notification
// text, and role-scoped listings for invitee pickers.
type Directory interface {
	GetUser(ctx context.Context, id string) (DirectoryUser, error)
	ListUsersByRole(ctx context.Context, role string) ([]DirectoryUser, error)
}

// missingUserIDs resolves each id against the directory and collects the ones
// it does not know.
func missingUserIDs(ctx context.Context, directory Directory, ids []string) ([]string, error) {
	if directory == nil || len(ids) == 0 {
		return nil, nil
	}

	missing := make([]string, 0)
	for _, id := range uniqueStrings(ids) {
		if _, err := directory.GetUser(ctx, id); err != nil {
			if isNotFoundError(err) {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return missing, nil
}

// displayName renders a directory entry for notification text, family name
// first, falling back to the raw id when the directory cannot answer.
func displayName(ctx context.Context, directory Directory, userID string) string {
	if directory == nil {
		return userID
	}
	user, err := directory.GetUser(ctx, userID)
	if err != nil {
		return userID
	}
	name := strings.TrimSpace(strings.TrimSpace(user.LastName) + " " + strings.TrimSpace(user.FirstName))
	if name == "" {
		return userID
	}
	return name
}
