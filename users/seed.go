package users

import "context"

// SeedDevUsers populates an empty repository with the development accounts:
// a regular "demo" user and an "admin" user, both active. It is a no-op when
// any user already exists, so restarts never reset credentials.
func SeedDevUsers(ctx context.Context, repo Repo, hash func(string) (string, error)) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeds := []struct {
		username string
		password string
		role     RoleType
	}{
		{username: "demo", password: "demo", role: RoleUser},
		{username: "admin", password: "admin", role: RoleAdmin},
	}

	for _, seed := range seeds {
		passwordHash, err := hash(seed.password)
		if err != nil {
			return err
		}
		user := &User{
			Username:     seed.username,
			PasswordHash: passwordHash,
			Role:         seed.role,
			IsActive:     true,
		}
		if err := repo.Upsert(ctx, user); err != nil {
			return err
		}
	}
	return nil
}
