package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
)

type seedUser struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	ZoneID   *string `json:"zone_id"`
	IsActive *bool   `json:"is_active"`
}

// SeedUsersFromFile loads a JSON array of users into the store. Users are
// active unless is_active is false.
func (s *Store) SeedUsersFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seeds []seedUser
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	repo := s.Users()
	for i, seed := range seeds {
		role := user.Role(seed.Role)
		if seed.ID == "" || !role.IsValid() {
			return i, fmt.Errorf("seed user %d: id and a valid role are required", i)
		}
		active := seed.IsActive == nil || *seed.IsActive
		if _, err := repo.Create(ctx, user.User{
			ID:       seed.ID,
			Name:     seed.Name,
			Email:    seed.Email,
			Role:     role,
			ZoneID:   seed.ZoneID,
			IsActive: active,
		}); err != nil {
			return i, fmt.Errorf("failed to seed user %s: %w", seed.ID, err)
		}
	}
	return len(seeds), nil
}
